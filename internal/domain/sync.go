package domain

import "time"

type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncPartial SyncStatus = "partial"
	SyncFailure SyncStatus = "failure"
)

// SyncCurrencyResult summarises one currency within an archive sync run.
type SyncCurrencyResult struct {
	Currency     string `json:"currency"`
	Observations int    `json:"observations"`
	FailedChunks int    `json:"failed_chunks"`
	Error        string `json:"error,omitempty"`
}

// SyncRun records one pass of copying recent rates into the archive.
type SyncRun struct {
	ID         string               `json:"id"`
	Start      time.Time            `json:"start"`
	End        time.Time            `json:"end"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Status     SyncStatus           `json:"status"`
	Currencies []SyncCurrencyResult `json:"currencies"`
}

// SyncEvent is published after a currency has been written to the archive.
type SyncEvent struct {
	RunID        string    `json:"run_id"`
	Currency     string    `json:"currency"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Observations int       `json:"observations"`
	FailedChunks int       `json:"failed_chunks"`
}
