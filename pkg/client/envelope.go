package client

import (
	"encoding/json"
	"fmt"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// envelope is the {ok, data, message} wrapper used by the runs API. Bodies
// without the wrapper are accepted as bare payloads.
type envelope struct {
	OK      *bool           `json:"ok"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`

	raw []byte
}

// parseEnvelope decodes body. A JSON value that is not an object is kept as
// a bare payload.
func parseEnvelope(body []byte) (*envelope, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	env := &envelope{raw: body}

	// Non-object payloads simply leave the wrapper fields unset.
	_ = json.Unmarshal(body, env)

	return env, nil
}

// failed reports whether the wrapper explicitly signals failure.
func (e *envelope) failed() bool {
	return e.OK != nil && !*e.OK
}

// decodePayload unmarshals data when present, otherwise the bare body.
func (e *envelope) decodePayload(v any) error {
	payload := e.raw
	if len(e.Data) > 0 && string(e.Data) != "null" {
		payload = e.Data
	}

	return json.Unmarshal(payload, v)
}

// messageFrom extracts a "message" field from an error body. Malformed
// bodies yield an empty string.
func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	return payload.Message
}
