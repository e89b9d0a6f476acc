package client

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order. Values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO 8601 timestamp as sent by the runs API,
// with or without a zone offset and fractional seconds.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

// timestamp decodes a JSON string through ParseTimestamp.
type timestamp time.Time

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	t, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}

	*ts = timestamp(t)

	return nil
}

func (ts *timestamp) timePtr() *time.Time {
	if ts == nil {
		return nil
	}

	t := time.Time(*ts)

	return &t
}
