// Package discovery finds newly-live broadcasts for channels that submitted
// clips from a not-yet-tracked chat session and registers them in the
// broadcast state cache. It is a dedup + serialization mechanism, not a
// general task queue: jobs get one attempt, are never retried, and are lost
// on restart. Discovery is advisory — timestamp correctness only needs the
// broadcast row to exist before a highlight compile, and a dropped job is
// re-triggered by the next clip from a new chat session.
package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/clip-tender/backend/broadcast"
	"github.com/onnwee/clip-tender/backend/telemetry"
	"github.com/onnwee/clip-tender/backend/youtubeapi"
)

// Job asks the worker to look for a live broadcast on one channel, keyed by
// the chat session that triggered it.
type Job struct {
	ChatID    string
	ChannelID string
}

// Registry is the broadcast persistence surface; *broadcast.Store implements it.
type Registry interface {
	ChatSessionExists(ctx context.Context, chatID string) (bool, error)
	Blacklisted(ctx context.Context, channelID string) (bool, error)
	Insert(ctx context.Context, st *broadcast.State) error
}

// Searcher is the provider surface; *youtubeapi.Client implements it.
type Searcher interface {
	SearchBroadcasts(ctx context.Context, channelID, eventType string, max int64) ([]youtubeapi.SearchResult, error)
}

// Queue serializes discovery work through one bounded channel consumed by a
// single worker goroutine, one job per tick. Two jobs are never in flight at
// once, which keeps a channel from being registered twice by concurrent
// discoveries.
type Queue struct {
	store  Registry
	search Searcher
	tick   time.Duration

	jobs    chan Job
	mu      sync.Mutex
	pending map[string]struct{} // chat ids queued but not yet processed
}

// New builds a Queue. tick <= 0 defaults to one second; buffer <= 0 to 64.
func New(store Registry, search Searcher, tick time.Duration, buffer int) *Queue {
	if tick <= 0 {
		tick = time.Second
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{
		store:   store,
		search:  search,
		tick:    tick,
		jobs:    make(chan Job, buffer),
		pending: make(map[string]struct{}),
	}
}

// Offer enqueues a discovery job unless the chat session is already known to
// the cache or already queued. A full buffer drops the job (logged); the next
// clip from a fresh session will re-trigger it.
func (q *Queue) Offer(ctx context.Context, chatID, channelID string) {
	known, err := q.store.ChatSessionExists(ctx, chatID)
	if err != nil {
		slog.Warn("discovery dedup check failed", slog.Any("err", err), slog.String("component", "discovery"))
		return
	}
	if known {
		return
	}
	q.mu.Lock()
	if _, ok := q.pending[chatID]; ok {
		q.mu.Unlock()
		return
	}
	select {
	case q.jobs <- Job{ChatID: chatID, ChannelID: channelID}:
		q.pending[chatID] = struct{}{}
		telemetry.DiscoveryEnqueued.Inc()
		telemetry.SetDiscoveryQueueDepth(len(q.jobs))
	default:
		telemetry.DiscoveryDropped.Inc()
		slog.Warn("discovery queue full; job dropped", slog.String("channel_id", channelID), slog.String("component", "discovery"))
	}
	q.mu.Unlock()
}

// Start runs the worker loop until the context is cancelled. At most one job
// is processed per tick, and jobs never overlap.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		slog.Info("discovery worker starting", slog.Duration("tick", q.tick), slog.String("component", "discovery"))
		ticker := time.NewTicker(q.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("discovery worker stopped", slog.String("component", "discovery"))
				return
			case <-ticker.C:
				select {
				case job := <-q.jobs:
					q.process(ctx, job)
					q.mu.Lock()
					delete(q.pending, job.ChatID)
					telemetry.SetDiscoveryQueueDepth(len(q.jobs))
					q.mu.Unlock()
				default:
				}
			}
		}
	}()
}

// process gives a job its single attempt. Failures are logged and the job is
// dropped.
func (q *Queue) process(ctx context.Context, job Job) {
	telemetry.DiscoveryProcessed.Inc()
	blocked, err := q.store.Blacklisted(ctx, job.ChannelID)
	if err != nil {
		slog.Warn("blacklist check failed", slog.String("channel_id", job.ChannelID), slog.Any("err", err), slog.String("component", "discovery"))
		return
	}
	if blocked {
		telemetry.DiscoveryDropped.Inc()
		slog.Info("discovery skipped blacklisted channel", slog.String("channel_id", job.ChannelID), slog.String("component", "discovery"))
		return
	}
	results, err := q.search.SearchBroadcasts(ctx, job.ChannelID, youtubeapi.EventLive, 1)
	if err != nil {
		slog.Warn("live broadcast search failed", slog.String("channel_id", job.ChannelID), slog.Any("err", err), slog.String("component", "discovery"))
		return
	}
	if len(results) == 0 {
		slog.Debug("no live broadcast found", slog.String("channel_id", job.ChannelID), slog.String("component", "discovery"))
		return
	}
	for _, r := range results {
		st := &broadcast.State{
			ChannelID: job.ChannelID,
			VideoID:   r.VideoID,
			Title:     r.Title,
			Status:    broadcast.StatusLive,
			ChatID:    job.ChatID,
			Marked:    false,
		}
		if err := q.store.Insert(ctx, st); err != nil {
			slog.Warn("register broadcast failed", slog.String("video_id", r.VideoID), slog.Any("err", err), slog.String("component", "discovery"))
			continue
		}
		slog.Info("live broadcast registered", slog.String("channel_id", job.ChannelID), slog.String("video_id", r.VideoID), slog.String("title", r.Title), slog.String("component", "discovery"))
	}
}
