package types

// SuccessEnvelope wraps every non-list 2xx body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListEnvelope carries a page of results and the cursor for the next one.
type ListEnvelope struct {
	Data       any    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// APIError is the public face of a failed request. Retryable tells clients
// whether repeating the call with the same Idempotency-Key can succeed.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
