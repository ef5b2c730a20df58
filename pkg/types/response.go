package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope carries the notifications raised before the failure so the
// client can still show them.
type ErrorEnvelope struct {
	Error         APIError `json:"error"`
	Notifications any      `json:"notifications,omitempty"`
}
