// ABOUTME: Unit tests for the revocation and refresh registries
// ABOUTME: Covers set semantics, sweeping, and concurrent mutation safety

package auth

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRegistry_RevokeAccess(t *testing.T) {
	r := NewRegistry()

	if r.IsRevoked("tok") {
		t.Error("fresh registry should not report tok as revoked")
	}

	r.RevokeAccess("tok", time.Now().Add(time.Minute))
	if !r.IsRevoked("tok") {
		t.Error("tok should be revoked after RevokeAccess")
	}

	// Revoking twice is harmless.
	r.RevokeAccess("tok", time.Now().Add(time.Minute))
	if !r.IsRevoked("tok") {
		t.Error("tok should remain revoked")
	}
}

func TestRegistry_RefreshLifecycle(t *testing.T) {
	r := NewRegistry()

	r.RegisterRefresh("rt", time.Now().Add(time.Hour))
	if !r.HasRefresh("rt") {
		t.Error("rt should be registered")
	}
	if got := r.ActiveRefreshCount(); got != 1 {
		t.Errorf("ActiveRefreshCount() = %d, want 1", got)
	}

	r.RemoveRefresh("rt")
	if r.HasRefresh("rt") {
		t.Error("rt should be gone after RemoveRefresh")
	}

	// Removal is idempotent.
	r.RemoveRefresh("rt")
	if got := r.ActiveRefreshCount(); got != 0 {
		t.Errorf("ActiveRefreshCount() = %d, want 0", got)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.RevokeAccess("old-access", now.Add(-time.Minute))
	r.RevokeAccess("live-access", now.Add(time.Minute))
	r.RegisterRefresh("old-refresh", now.Add(-time.Minute))
	r.RegisterRefresh("live-refresh", now.Add(time.Hour))

	if removed := r.Sweep(now); removed != 2 {
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}

	if r.IsRevoked("old-access") {
		t.Error("expired revocation entry should be swept")
	}
	if !r.IsRevoked("live-access") {
		t.Error("live revocation entry should survive sweep")
	}
	if r.HasRefresh("old-refresh") {
		t.Error("expired refresh entry should be swept")
	}
	if !r.HasRefresh("live-refresh") {
		t.Error("live refresh entry should survive sweep")
	}
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := NewRegistry()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("token-%d", i)
			r.RegisterRefresh(tok, exp)
			r.RevokeAccess(tok, exp)
			_ = r.HasRefresh(tok)
			_ = r.IsRevoked(tok)
			_ = r.ActiveRefreshCount()
			if i%2 == 0 {
				r.RemoveRefresh(tok)
			}
		}(i)
	}
	wg.Wait()

	if got := r.ActiveRefreshCount(); got != 16 {
		t.Errorf("ActiveRefreshCount() = %d, want 16", got)
	}
	for i := 0; i < 32; i++ {
		if !r.IsRevoked(fmt.Sprintf("token-%d", i)) {
			t.Errorf("token-%d should be revoked", i)
		}
	}
}
