// Package ingest contains the per-source fetchers and the orchestrator that
// runs them for a token. Each source is independent: a failure in one never
// blocks the others, and re-running a source against already-fresh data is a
// cheap no-op.
package ingest

import (
	"context"

	"github.com/dexiq/dexiq/internal/domain"
)

// Source is one external data feed for a token. Fetch returns how many new
// records were persisted; 0 with a nil error means the source was fresh or
// the upstream had nothing new.
type Source interface {
	Name() string
	Fetch(ctx context.Context, token *domain.Token) (int, error)
}
