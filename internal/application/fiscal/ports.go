package fiscal

import (
	"context"
)

// ExportArchiver keeps a copy of every generated declaration file
type ExportArchiver interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// Sync outcomes reported to the Recorder
const (
	SyncOutcomeCreated   = "created"
	SyncOutcomeUpdated   = "updated"
	SyncOutcomeReclaimed = "reclaimed"
	SyncOutcomeLocked    = "locked"
	SyncOutcomeFailed    = "failed"
)

// Recorder receives the counters of fiscal operations
type Recorder interface {
	SyncCompleted(outcome string)
	DiagnosticRaised(code string)
	WithholdingPosted(tax string)
	ExportGenerated(kind string, records int)
}

type nopRecorder struct{}

func (nopRecorder) SyncCompleted(string)        {}
func (nopRecorder) DiagnosticRaised(string)     {}
func (nopRecorder) WithholdingPosted(string)    {}
func (nopRecorder) ExportGenerated(string, int) {}
