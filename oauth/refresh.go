// Package oauth schedules background refresh of persisted OAuth tokens. It
// wakes on a jittered interval and refreshes a provider's token when its
// remaining lifetime falls inside a configured window.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// TokenStore reads and writes one token row per provider. The raw field
// carries the provider's serialized token payload, if any.
type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, raw string) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, raw string, err error)
}

// RefreshFunc performs the provider-specific refresh call and returns the new
// access token, refresh token, and expiry.
type RefreshFunc func(ctx context.Context, refreshToken string) (access, refresh string, expiry time.Time, err error)

// StartRefresher launches a goroutine that periodically checks a provider's
// token and refreshes it when expiry is within window. It returns immediately.
func StartRefresher(ctx context.Context, store TokenStore, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	// Randomize the initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Per-iteration jitter of roughly ±20% keeps replicas from
			// waking in lockstep.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			refreshOnce(ctx, store, provider, window, fn)
		}
	}()
}

func refreshOnce(ctx context.Context, store TokenStore, provider string, window time.Duration, fn RefreshFunc) {
	_, rt, exp, raw, err := store.GetOAuthToken(ctx, provider)
	if err != nil || rt == "" {
		return
	}
	if time.Until(exp) > window {
		return
	}
	// Small pre-refresh jitter avoids stampedes when many pods observe the
	// same expiry.
	//nolint:gosec // G404: math/rand is sufficient for jitter
	pre := time.Duration(rand.Int63n(int64(5 * time.Second)))
	select {
	case <-ctx.Done():
		return
	case <-time.After(pre):
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAT, newRT, newExp, err := fn(ctx2, rt)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	if newRT == "" {
		newRT = rt
	}
	if err := store.UpsertOAuthToken(ctx, provider, newAT, newRT, newExp, raw); err != nil {
		slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	slog.Info("token refreshed", slog.String("provider", provider))
}
