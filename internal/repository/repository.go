// Package repository stores the outcomes of finished matches.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrDuplicate is returned when a match result is recorded twice.
var ErrDuplicate = errors.New("match result already recorded")

// MatchResult is the persisted outcome of one match.
type MatchResult struct {
	MatchID      string
	WinnerID     string
	WinnerName   string
	LoserID      string
	LoserName    string
	Reason       string
	Turns        int
	SinglePlayer bool
	StartedAt    time.Time
	EndedAt      time.Time
}

func (r MatchResult) validate() error {
	if strings.TrimSpace(r.MatchID) == "" {
		return fmt.Errorf("match id is required")
	}
	if r.WinnerID == "" || r.LoserID == "" {
		return fmt.Errorf("match %s: winner and loser are required", r.MatchID)
	}
	return nil
}

// Standing is a player's win/loss tally, keyed by display name.
type Standing struct {
	Name   string
	Wins   int
	Losses int
}

// ResultStore records and queries finished matches.
type ResultStore interface {
	Record(ctx context.Context, result MatchResult) error
	Recent(ctx context.Context, limit int) ([]MatchResult, error)
	Standing(ctx context.Context, name string) (Standing, error)
	Close() error
}

// Open returns the store for driver. The memory driver ignores dsn.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (ResultStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, logger)
	case DriverSQLite:
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
