package oauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
	raw     string
	getErr  error
}

func (f *fakeTokenStore) UpsertOAuthToken(_ context.Context, _ string, access, refresh string, expiry time.Time, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh, f.expiry, f.raw = access, refresh, expiry, raw
	return nil
}

func (f *fakeTokenStore) GetOAuthToken(_ context.Context, _ string) (string, string, time.Time, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh, f.expiry, f.raw, f.getErr
}

func TestRefreshOnceSkipsOutsideWindow(t *testing.T) {
	store := &fakeTokenStore{access: "at", refresh: "rt", expiry: time.Now().Add(time.Hour)}
	called := false
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
		called = true
		return "", "", time.Time{}, nil
	}

	refreshOnce(context.Background(), store, "youtube", 15*time.Minute, fn)
	if called {
		t.Fatal("refresh should not run while token is outside the window")
	}
}

func TestRefreshOnceSkipsWithoutRefreshToken(t *testing.T) {
	store := &fakeTokenStore{access: "at", expiry: time.Now().Add(time.Minute)}
	called := false
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
		called = true
		return "", "", time.Time{}, nil
	}

	refreshOnce(context.Background(), store, "youtube", 15*time.Minute, fn)
	if called {
		t.Fatal("refresh should not run without a refresh token")
	}
}

func TestRefreshOncePersistsNewToken(t *testing.T) {
	store := &fakeTokenStore{access: "old-at", refresh: "old-rt", expiry: time.Now().Add(time.Minute), raw: "{}"}
	newExpiry := time.Now().Add(2 * time.Hour)
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
		if refreshToken != "old-rt" {
			t.Errorf("refresh called with %q", refreshToken)
		}
		return "new-at", "new-rt", newExpiry, nil
	}

	refreshOnce(context.Background(), store, "youtube", 15*time.Minute, fn)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.access != "new-at" || store.refresh != "new-rt" {
		t.Fatalf("token not persisted: access=%q refresh=%q", store.access, store.refresh)
	}
	if !store.expiry.Equal(newExpiry) {
		t.Fatalf("expiry not persisted: %v", store.expiry)
	}
}

func TestRefreshOnceKeepsOldRefreshToken(t *testing.T) {
	store := &fakeTokenStore{access: "old-at", refresh: "old-rt", expiry: time.Now().Add(time.Minute)}
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
		// providers frequently omit the refresh token on renewal
		return "new-at", "", time.Now().Add(time.Hour), nil
	}

	refreshOnce(context.Background(), store, "youtube", 15*time.Minute, fn)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.refresh != "old-rt" {
		t.Fatalf("expected old refresh token kept, got %q", store.refresh)
	}
}

func TestRefreshOnceLeavesTokenOnFailure(t *testing.T) {
	store := &fakeTokenStore{access: "old-at", refresh: "old-rt", expiry: time.Now().Add(time.Minute)}
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
		return "", "", time.Time{}, errors.New("upstream unavailable")
	}

	refreshOnce(context.Background(), store, "youtube", 15*time.Minute, fn)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.access != "old-at" || store.refresh != "old-rt" {
		t.Fatal("token must be untouched when refresh fails")
	}
}

func TestStartRefresherStopsOnCancel(t *testing.T) {
	store := &fakeTokenStore{}
	ctx, cancel := context.WithCancel(context.Background())
	StartRefresher(ctx, store, "youtube", time.Hour, time.Minute, func(ctx context.Context, rt string) (string, string, time.Time, error) {
		return "", "", time.Time{}, nil
	})
	cancel()
	// The goroutine exits on ctx.Done; nothing to observe beyond no panic.
	time.Sleep(10 * time.Millisecond)
}
