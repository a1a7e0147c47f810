// Package store persists run metadata and per-example output records.
package store

import (
	"context"
	"time"
)

// Store is the interface for persisting and querying runs.
type Store interface {
	Close() error

	// Runs
	CreateRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, id string, at time.Time) error
	GetRun(ctx context.Context, id string) (Run, error)
	LatestRun(ctx context.Context) (Run, error)
	LatestFinishedRun(ctx context.Context) (Run, error)

	// Records
	PutRecord(ctx context.Context, r Record) error
	Records(ctx context.Context, runID string) ([]Record, error)
}

// Run describes one invocation over an input file.
type Run struct {
	ID         string
	InputPath  string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Config     string    // yaml snapshot of the effective configuration
}

// Finished reports whether FinishRun was called.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// Record is the outcome of one program of one example. A record is keyed by
// (RunID, Position, LogicType); writing it again replaces it.
type Record struct {
	RunID     string
	Position  int // index of the example in the input
	ExampleID string
	LogicType string
	Status    string
	Predicted string
	Answer    string // gold answer, empty when unlabelled
	Detail    string
	Trace     string
	Backup    bool
}

// Correct reports whether the record carries a label matching the prediction.
func (r Record) Correct() bool {
	return r.Answer != "" && r.Predicted == r.Answer
}
