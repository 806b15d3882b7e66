package cloud

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the provider error code carried by err, or "" when err
// is not a provider API error.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsAlreadyExists reports whether err is the provider rejecting a create
// because a resource with the same name exists. The compute platform signals
// this as an invalid parameter, DNS as an invalid change batch.
func IsAlreadyExists(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InvalidParameterValue", "InvalidChangeBatch":
		return strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "already exists")
	}
	return false
}
