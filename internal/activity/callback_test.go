package activity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/instance-deploy/internal/model"
)

func TestSendCallback_Success(t *testing.T) {
	var received model.CallbackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/instances/inst1/callback", r.URL.Path)
		assert.Equal(t, "activation-token", r.Header.Get("jwt"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewCallback(srv.URL+"/", time.Second)
	err := a.SendCallback(context.Background(), SendCallbackParams{
		InstanceID: "inst1",
		Token:      "activation-token",
		Payload: model.CallbackPayload{
			EnvID:     "e-abc123",
			URL:       "acme-acct123.example.com",
			AccountID: "acct123",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "e-abc123", received.EnvID)
	assert.Equal(t, "acme-acct123.example.com", received.URL)
	assert.Equal(t, "acct123", received.AccountID)
}

func TestSendCallback_BodyFieldNames(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewCallback(srv.URL, time.Second)
	err := a.SendCallback(context.Background(), SendCallbackParams{
		InstanceID: "inst1",
		Payload:    model.CallbackPayload{EnvID: "e-1", URL: "h.example.com", AccountID: "a-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"envId": "e-1", "url": "h.example.com", "accountId": "a-1"}, raw)
}

func TestSendCallback_EscapesInstanceID(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewCallback(srv.URL, time.Second)
	require.NoError(t, a.SendCallback(context.Background(), SendCallbackParams{InstanceID: "a/b"}))
	assert.Equal(t, "/instances/a%2Fb/callback", path)
}

func TestSendFailureCallback(t *testing.T) {
	var received model.FailureCallbackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/instances/inst1/fail-callback", r.URL.Path)
		assert.Equal(t, "activation-token", r.Header.Get("jwt"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewCallback(srv.URL, time.Second)
	err := a.SendFailureCallback(context.Background(), SendFailureCallbackParams{
		InstanceID: "inst1",
		Token:      "activation-token",
		Payload: model.FailureCallbackPayload{
			AccountID: "acct123",
			EnvID:     "e-abc123",
			Stage:     model.StatusResourcesReady,
			Message:   "create https listener: boom",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "acct123", received.AccountID)
	assert.Equal(t, model.StatusResourcesReady, received.Stage)
	assert.Equal(t, "create https listener: boom", received.Message)
}

func TestSendCallback_ClientError_NonRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewCallback(srv.URL, time.Second)
	err := a.SendCallback(context.Background(), SendCallbackParams{InstanceID: "inst1"})

	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.NonRetryable())
}

func TestSendCallback_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewCallback(srv.URL, time.Second)
	err := a.SendCallback(context.Background(), SendCallbackParams{InstanceID: "inst1"})

	require.Error(t, err)
	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
	assert.Contains(t, err.Error(), "callback returned 500")
}

func TestSendCallback_Unreachable(t *testing.T) {
	a := NewCallback("http://127.0.0.1:1", time.Second)
	err := a.SendCallback(context.Background(), SendCallbackParams{InstanceID: "inst1"})

	require.Error(t, err)
	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
}
