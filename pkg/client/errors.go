package client

import "errors"

// APIError is returned when the runs API answers with a failure.
type APIError struct {
	StatusCode int
	Message    string
}

func newAPIError(status int, message, fallback string) *APIError {
	if message == "" {
		message = fallback
	}

	return &APIError{StatusCode: status, Message: message}
}

// Error returns the human readable message.
func (e *APIError) Error() string {
	return e.Message
}

// Message returns the user facing text of err: the API message for an
// *APIError, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return err.Error()
}
