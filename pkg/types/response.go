// Package types holds the JSON envelopes shared by every CRM API response.
// Handlers never write bare payloads; the office UI relies on the data/error
// split to route responses without inspecting status codes first.
package types

// SuccessEnvelope wraps a successful payload under "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of one failure: a stable machine code, a
// human-readable message, and optional field-level details for validation
// responses.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps a failure under "error".
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
