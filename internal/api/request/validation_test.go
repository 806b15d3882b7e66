package request

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/instance-deploy/internal/model"
)

func newRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)
	return r
}

func TestDecode_ProvisionRequest(t *testing.T) {
	var req model.ProvisionRequest
	err := Decode(newRequest(t, `{"instanceId":"inst1","accountId":"acct123","name":"acme","key":"tok"}`), &req)

	require.NoError(t, err)
	assert.Equal(t, model.ProvisionRequest{InstanceID: "inst1", AccountID: "acct123", Name: "acme", Key: "tok"}, req)
}

func TestDecode_IgnoresTokenInBody(t *testing.T) {
	var req model.ProvisionRequest
	err := Decode(newRequest(t, `{"instanceId":"i","accountId":"a","name":"n","key":"k","JWT":"smuggled"}`), &req)

	require.NoError(t, err)
	assert.Empty(t, req.JWT)
}

func TestDecode_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no instanceId", `{"accountId":"a","name":"n","key":"k"}`, "instanceId"},
		{"no accountId", `{"instanceId":"i","name":"n","key":"k"}`, "accountId"},
		{"no name", `{"instanceId":"i","accountId":"a","key":"k"}`, "name"},
		{"empty key", `{"instanceId":"i","accountId":"a","name":"n","key":""}`, "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req model.ProvisionRequest
			err := Decode(newRequest(t, tt.body), &req)
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindValidation))
			assert.Contains(t, err.Error(), "missing required fields")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_ReportsAllMissingFields(t *testing.T) {
	var req model.ProvisionRequest
	err := Decode(newRequest(t, `{}`), &req)

	require.Error(t, err)
	assert.Equal(t, "missing required fields: instanceId, accountId, name, key", err.Error())
}

func TestDecode_InvalidJSON(t *testing.T) {
	var req model.ProvisionRequest
	err := Decode(newRequest(t, `{not json`), &req)

	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindValidation))
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_TenantLabels(t *testing.T) {
	tests := []struct {
		name      string
		tenant    string
		accountID string
		wantErr   string
	}{
		{"lowercase with inner hyphen", "acme-shop", "acct123", ""},
		{"spaces and punctuation", "Acme Corp!", "acct123", "invalid fields: name"},
		{"uppercase", "Acme", "acct123", "invalid fields: name"},
		{"leading hyphen", "-acme", "acct123", "invalid fields: name"},
		{"trailing hyphen in account", "acme", "acct123-", "invalid fields: accountId"},
		{"dot in account", "acme", "acct.123", "invalid fields: accountId"},
		{"exactly at the limit", strings.Repeat("a", 32), "acct123", ""},
		{"over the limit", strings.Repeat("a", 33), "acct123", "exceed 40 characters combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"instanceId":"inst1","accountId":%q,"name":%q,"key":"tok"}`, tt.accountID, tt.tenant)
			var req model.ProvisionRequest
			err := Decode(newRequest(t, body), &req)

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
