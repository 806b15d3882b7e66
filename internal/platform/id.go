package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// secretAlphabet is URL- and shell-safe: 64 symbols, so every character
// carries exactly 6 bits and byte masking introduces no bias.
const secretAlphabet = "ModuleSymbhasOwnPr-0123456789ABCDEFGHNRVfgctiUvz_KqYTJkLxpZXIjQW"

// SecretLength yields 216 bits of randomness per secret.
const SecretLength = 36

func NewID() string {
	return uuid.New().String()
}

// NewSecret returns a fresh random secret of SecretLength characters drawn
// from secretAlphabet.
func NewSecret() string {
	b := make([]byte, SecretLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = secretAlphabet[b[i]&63]
	}
	return string(b)
}
