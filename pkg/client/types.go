package client

import (
	"encoding/json"
	"time"
)

// Run is a single dated job execution as served by the runs API.
type Run struct {
	RunID      string     `json:"run_id"`
	DT         string     `json:"dt"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Message    *string    `json:"message,omitempty"`
}

// UnmarshalJSON accepts started_at and finished_at in any form
// ParseTimestamp understands.
func (r *Run) UnmarshalJSON(data []byte) error {
	type runAlias Run

	aux := struct {
		*runAlias
		StartedAt  *timestamp `json:"started_at"`
		FinishedAt *timestamp `json:"finished_at"`
	}{runAlias: (*runAlias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.StartedAt = aux.StartedAt.timePtr()
	r.FinishedAt = aux.FinishedAt.timePtr()

	return nil
}

// RunList is one page of runs.
type RunList struct {
	Items    []Run `json:"items"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// HealthResult reports whether the health probe returned a 2xx status.
// Data holds the raw JSON body, or nil when the body was not JSON.
type HealthResult struct {
	OK         bool            `json:"ok"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data,omitempty"`
}
