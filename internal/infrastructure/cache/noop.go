package cache

import (
	"context"
	"time"

	"JournalSync/internal/ports"
)

// Noop is used when caching is disabled; every lookup misses.
type Noop struct{}

var _ ports.AnalysisCache = Noop{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Close() error                                             { return nil }
