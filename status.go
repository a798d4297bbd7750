package stagecore

import "github.com/cas-centre/stagecore/internal/status"

// Counters, Snapshot, and Observer re-export internal/status as stagecore's
// public observability API (see errors.go for why leaf packages build
// against the internal package directly rather than this one).
type (
	Counters = status.Counters
	Snapshot = status.Snapshot
	Observer = status.Observer
)

type NoOpObserver = status.NoOpObserver

type CountersObserver = status.CountersObserver

var (
	NewCounters         = status.NewCounters
	NewCountersObserver = status.NewCountersObserver
)
