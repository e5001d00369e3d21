package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/clip-tender/backend/telemetry"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// HandleLeaderboard serves top chatters for a channel's most recent completed
// broadcast as JSON. Provider failures surface as an empty list, never a 5xx.
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.boards == nil {
		http.Error(w, "leaderboard not configured", http.StatusServiceUnavailable)
		return
	}
	channelID := r.URL.Query().Get("channelId")
	if channelID == "" {
		channelID = r.URL.Query().Get("channelid")
	}
	if channelID == "" {
		http.Error(w, "missing channelId", http.StatusBadRequest)
		return
	}
	limit := parseIntQuery(r, "limit", defaultLeaderboardLimit)
	if limit < 1 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries := h.boards.TopChatters(r.Context(), channelID, limit)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"channelId": channelID, "entries": entries}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleHighlights runs a highlight compilation for one channel, or for every
// configured channel when channelId is absent. Cron authenticated upstream.
func (h *Handlers) HandleHighlights(w http.ResponseWriter, r *http.Request) {
	if h.highlights == nil {
		http.Error(w, "highlight compiler not configured", http.StatusServiceUnavailable)
		return
	}
	channels := h.cfg.HighlightChannels
	if ch := r.URL.Query().Get("channelId"); ch != "" {
		channels = []string{ch}
	}
	if len(channels) == 0 {
		http.Error(w, "no channels configured", http.StatusBadRequest)
		return
	}

	type result struct {
		ChannelID string `json:"channelId"`
		Outcome   string `json:"outcome"`
		VideoID   string `json:"videoId,omitempty"`
		Clips     int    `json:"clips,omitempty"`
		Error     string `json:"error,omitempty"`
	}
	results := make([]result, 0, len(channels))
	for _, ch := range channels {
		out, err := h.highlights.Compile(r.Context(), ch)
		if err != nil {
			telemetry.LoggerWithCorr(r.Context()).Warn("highlight compile failed", slog.String("channel_id", ch), slog.Any("err", err))
			results = append(results, result{ChannelID: ch, Outcome: "error", Error: err.Error()})
			continue
		}
		results = append(results, result{ChannelID: ch, Outcome: out.Kind.String(), VideoID: out.VideoID, Clips: out.Clips})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"results": results}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleMonitorStreams is the scheduler's no-op ping: it confirms the process
// is alive and reports discovery queue depth so a flat-lining worker shows up
// in cron logs. Cron authenticated upstream.
func (h *Handlers) HandleMonitorStreams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"ok": true}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleDCKeepAlive exercises the Discord credential so the bot token stays
// warm, reporting the bot's username. Cron authenticated upstream.
func (h *Handlers) HandleDCKeepAlive(w http.ResponseWriter, r *http.Request) {
	if h.discord == nil {
		http.Error(w, "discord not configured", http.StatusServiceUnavailable)
		return
	}
	username, err := h.discord.CurrentUser(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("discord keepalive failed", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok", "bot": username}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
