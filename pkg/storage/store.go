package storage

import (
	"context"
	"time"

	"github.com/opscart/finops-scan/pkg/review"
)

// Run is the persisted record of one review invocation.
type Run struct {
	ID         string
	Profile    string
	Partitions []string
	StartedAt  time.Time
	FinishedAt time.Time
	RowCount   int
}

// Store persists review runs and their rows for trend queries across runs.
type Store interface {
	SaveRun(ctx context.Context, run *Run, rows []review.Row) error
	ListRuns(ctx context.Context, profileName string, limit int) ([]*Run, error)
	LabelHistory(ctx context.Context, resourceID string, limit int) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
