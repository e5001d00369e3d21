package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/clip-tender/backend/telemetry"
	"github.com/onnwee/clip-tender/backend/youtubeapi"
)

// Provider is the video metadata surface the cache needs.
type Provider interface {
	SearchBroadcasts(ctx context.Context, channelID, eventType string, max int64) ([]youtubeapi.SearchResult, error)
	VideoDetails(ctx context.Context, videoID string) (*youtubeapi.Details, error)
}

// StateStore is the persistence surface the cache needs; *Store implements it.
type StateStore interface {
	ActiveByChannel(ctx context.Context, channelID string) (*State, error)
	SetStreamStart(ctx context.Context, id int64, start time.Time) error
}

// Completed describes a finished broadcast eligible for aggregation: both the
// actual start and the actual end are confirmed.
type Completed struct {
	VideoID string
	Title   string
	Start   time.Time
	End     time.Time
	ChatID  string
}

// Cache is a read-through view over the broadcast state table. Start times
// are hydrated from the provider at most once per row: once persisted, later
// reads never call out again. Two near-simultaneous reads of the same
// un-hydrated row may both hit the provider; both compute the same start
// time, so the double write is harmless.
type Cache struct {
	Store    StateStore
	Provider Provider
}

// Active returns the channel's cached live broadcast, hydrating a missing
// start time on first need. Provider failures degrade to the un-hydrated row;
// a nil StreamStart means "timestamp not yet resolvable", not an error.
// Rows that stay un-hydrated are simply retried on the next read — there is
// no backoff and no terminal failure marking.
func (c *Cache) Active(ctx context.Context, channelID string) (*State, error) {
	st, err := c.Store.ActiveByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if st == nil || st.StreamStart != nil {
		return st, nil
	}

	telemetry.HydrationCalls.Inc()
	det, err := c.Provider.VideoDetails(ctx, st.VideoID)
	if err != nil {
		slog.Warn("broadcast hydration failed", slog.String("video_id", st.VideoID), slog.Any("err", err), slog.String("component", "broadcast_cache"))
		return st, nil
	}
	if det == nil {
		return st, nil
	}
	start := det.ActualStart
	if start == nil {
		start = det.ScheduledStart
	}
	if start == nil {
		return st, nil
	}
	if err := c.Store.SetStreamStart(ctx, st.ID, *start); err != nil {
		slog.Warn("persist hydrated start failed", slog.String("video_id", st.VideoID), slog.Any("err", err), slog.String("component", "broadcast_cache"))
	}
	st.StreamStart = start
	if st.ChatID == "" && det.ActiveChatID != "" {
		st.ChatID = det.ActiveChatID
	}
	return st, nil
}

// MostRecentCompleted asks the provider (not the cache) for the channel's
// latest finished broadcast. A broadcast without both a confirmed start and a
// confirmed end is not eligible and yields nil.
func (c *Cache) MostRecentCompleted(ctx context.Context, channelID string) (*Completed, error) {
	results, err := c.Provider.SearchBroadcasts(ctx, channelID, youtubeapi.EventCompleted, 1)
	if err != nil {
		return nil, fmt.Errorf("completed broadcast search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	r := results[0]
	det, err := c.Provider.VideoDetails(ctx, r.VideoID)
	if err != nil {
		return nil, fmt.Errorf("completed broadcast details: %w", err)
	}
	if det == nil || det.ActualStart == nil || det.ActualEnd == nil {
		return nil, nil
	}
	return &Completed{
		VideoID: r.VideoID,
		Title:   r.Title,
		Start:   *det.ActualStart,
		End:     *det.ActualEnd,
		ChatID:  det.ActiveChatID,
	}, nil
}
