package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/instance-deploy/internal/model"
)

// TokenHeader carries the activation token on inbound requests and outbound
// callbacks.
const TokenHeader = "jwt"

// Callback contains activities for reporting pipeline results back to the
// origin system.
type Callback struct {
	baseURL string
	client  *http.Client
}

// NewCallback creates a new Callback activity struct posting to baseURL.
func NewCallback(baseURL string, timeout time.Duration) *Callback {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Callback{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SendCallbackParams holds parameters for the SendCallback activity.
type SendCallbackParams struct {
	InstanceID string                `json:"instance_id"`
	Token      string                `json:"token"`
	Payload    model.CallbackPayload `json:"payload"`
}

// SendFailureCallbackParams holds parameters for the SendFailureCallback activity.
type SendFailureCallbackParams struct {
	InstanceID string                       `json:"instance_id"`
	Token      string                       `json:"token"`
	Payload    model.FailureCallbackPayload `json:"payload"`
}

// SendCallback POSTs the completed environment's identity to
// {base}/instances/{instanceId}/callback.
//   - 2xx → success (return nil)
//   - 4xx → non-retryable error
//   - 5xx / network error → plain error
func (a *Callback) SendCallback(ctx context.Context, params SendCallbackParams) error {
	return a.post(ctx, a.instanceURL(params.InstanceID, "callback"), params.Token, params.Payload)
}

// SendFailureCallback POSTs a failure report to
// {base}/instances/{instanceId}/fail-callback.
func (a *Callback) SendFailureCallback(ctx context.Context, params SendFailureCallbackParams) error {
	return a.post(ctx, a.instanceURL(params.InstanceID, "fail-callback"), params.Token, params.Payload)
}

func (a *Callback) instanceURL(instanceID, endpoint string) string {
	return fmt.Sprintf("%s/instances/%s/%s", a.baseURL, url.PathEscape(instanceID), endpoint)
}

func (a *Callback) post(ctx context.Context, target, token string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("marshal callback payload", "MARSHAL_ERROR", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return temporal.NewNonRetryableApplicationError("create callback request", "REQUEST_ERROR", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback POST to %s: %w", target, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("callback returned %d", resp.StatusCode),
			"CLIENT_ERROR", nil)
	}
	return fmt.Errorf("callback returned %d", resp.StatusCode)
}
