package types

import "encoding/json"

// SuccessEnvelope is the body of every successful API response.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every failed API response. Message mirrors
// Error.Message so clients that only read the flat shape still see it.
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Error   APIError `json:"error"`
}

// Envelope is the tolerant decoding shape used by API clients. Success
// accepts both JSON booleans and "true"/"false" strings.
type Envelope struct {
	Success FlexBool        `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error,omitempty"`
}
