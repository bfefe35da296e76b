package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/namma-finance/ledger-core/internal/cache"
)

// NewTestCache spins up an in-process miniredis instance (grounded on the
// pawnshop example's use of alicebob/miniredis for repository tests) and
// returns a *cache.Cache wired against it, so service tests exercise the
// real cache.Cache invalidation calls instead of needing a nil-check escape
// hatch in the service layer.
func NewTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.New("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("failed to construct test cache: %v", err)
	}
	return c
}
