// Package server HTTP handlers and their dependencies.
package server

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/clip-tender/backend/clip"
	"github.com/onnwee/clip-tender/backend/config"
	"github.com/onnwee/clip-tender/backend/highlight"
	"github.com/onnwee/clip-tender/backend/leaderboard"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// ClipSubmitter runs the clip ingestion pipeline; *clip.Service implements it.
type ClipSubmitter interface {
	Submit(ctx context.Context, req clip.Request) (*clip.Result, error)
}

// LeaderboardSource aggregates chat activity; *leaderboard.Aggregator
// implements it.
type LeaderboardSource interface {
	TopChatters(ctx context.Context, channelID string, limit int) []leaderboard.Entry
}

// HighlightCompiler compiles and posts highlight reports; *highlight.Compiler
// implements it.
type HighlightCompiler interface {
	Compile(ctx context.Context, channelID string) (highlight.Outcome, error)
}

// BotIdentity resolves the notification bot's own identity, used by the
// keepalive endpoint; *discordapi.Client implements it.
type BotIdentity interface {
	CurrentUser(ctx context.Context) (string, error)
}

// OAuthFlow is the consent flow for the comment-posting credential;
// *youtubeapi.Commenter implements it.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	clips      ClipSubmitter
	boards     LeaderboardSource
	highlights HighlightCompiler
	discord    BotIdentity
	oauthFlow  OAuthFlow

	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a Handlers instance. Nil collaborators disable the
// endpoints that need them (they respond with an explanatory error).
func NewHandlers(db *sql.DB, cfg *config.Config, clips ClipSubmitter, boards LeaderboardSource, highlights HighlightCompiler, discord BotIdentity, flow OAuthFlow) *Handlers {
	return &Handlers{
		db:         db,
		cfg:        cfg,
		clips:      clips,
		boards:     boards,
		highlights: highlights,
		discord:    discord,
		oauthFlow:  flow,
		stateStore: make(map[string]time.Time),
	}
}

// cleanExpiredStates removes expired OAuth states. Callers hold stateMu.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState records a pending OAuth state, bounding the store so an
// attacker cannot exhaust memory by spamming the start endpoint.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// Refusing the state fails the flow, which beats unbounded growth.
	if len(h.stateStore) >= maxOAuthStates {
		return
	}

	h.stateStore[state] = expiry
}

// consumeOAuthState validates and removes a state, returning false when the
// state is unknown or expired.
func (h *Handlers) consumeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(exp)
}
