package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the flat acknowledgement body payment providers expect.
type WebhookAck struct {
	Message string `json:"message"`
}

// WebhookError is the flat error body payment providers expect.
type WebhookError struct {
	Error string `json:"error"`
}
