package model

// CallbackPayload is the JSON body POSTed to the origin system when a
// deploy pipeline completes.
type CallbackPayload struct {
	EnvID     string `json:"envId"`
	URL       string `json:"url"`
	AccountID string `json:"accountId"`
}

// FailureCallbackPayload is the JSON body POSTed to the origin system's
// fail-callback endpoint when failure notification is enabled.
type FailureCallbackPayload struct {
	AccountID string             `json:"accountId"`
	EnvID     string             `json:"envId,omitempty"`
	Stage     ProvisioningStatus `json:"stage"`
	Message   string             `json:"message"`
}
