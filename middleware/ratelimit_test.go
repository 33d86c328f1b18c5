package middleware

import (
	"testing"
	"time"
)

func newTestStore(limit int, window time.Duration, start time.Time) (*AttemptStore, *time.Time) {
	current := start
	store := NewAttemptStore(limit, window)
	store.now = func() time.Time { return current }
	return store, &current
}

func TestAttemptStoreAllowsUpToLimit(t *testing.T) {
	store, _ := newTestStore(3, time.Minute, time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if !store.Allow("10.0.0.1") {
			t.Fatalf("attempt %d was denied below the limit", i+1)
		}
	}
	if store.Allow("10.0.0.1") {
		t.Error("attempt over the limit was allowed")
	}
}

func TestAttemptStoreWindowSlides(t *testing.T) {
	store, now := newTestStore(2, time.Minute, time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC))

	store.Allow("10.0.0.1")
	store.Allow("10.0.0.1")
	if store.Allow("10.0.0.1") {
		t.Fatal("third attempt inside the window was allowed")
	}

	*now = now.Add(61 * time.Second)
	if !store.Allow("10.0.0.1") {
		t.Error("attempt after the window expired was denied")
	}
}

func TestAttemptStoreKeysAreIndependent(t *testing.T) {
	store, _ := newTestStore(1, time.Minute, time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC))

	if !store.Allow("10.0.0.1") {
		t.Fatal("first key denied its first attempt")
	}
	if !store.Allow("10.0.0.2") {
		t.Error("second key was throttled by the first key's attempts")
	}
	if store.Allow("10.0.0.1") {
		t.Error("first key allowed over its limit")
	}
}

func TestAttemptStoreEvictsStaleKeys(t *testing.T) {
	store, now := newTestStore(5, time.Minute, time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC))
	store.maxKeys = 10

	for i := 0; i < 10; i++ {
		store.Allow(string(rune('a' + i)))
	}

	*now = now.Add(2 * time.Minute)
	if !store.Allow("fresh") {
		t.Fatal("new key denied")
	}
	if len(store.attempts) > 2 {
		t.Errorf("stale keys were not evicted, %d keys remain", len(store.attempts))
	}
}
