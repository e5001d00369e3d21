package clip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/onnwee/clip-tender/backend/broadcast"
	"github.com/onnwee/clip-tender/backend/notify"
	"github.com/onnwee/clip-tender/backend/telemetry"
)

// Inserter is the persistence surface for clip rows; *Store implements it.
type Inserter interface {
	Insert(ctx context.Context, c *Clip) error
}

// ActiveLookup resolves the channel's tracked live broadcast; *broadcast.Cache
// implements it.
type ActiveLookup interface {
	Active(ctx context.Context, channelID string) (*broadcast.State, error)
}

// DestinationResolver maps a channel to its Discord destination, "" when
// unmapped; *broadcast.Store implements it.
type DestinationResolver interface {
	DiscordDestination(ctx context.Context, channelID string) (string, error)
}

// Enqueuer accepts discovery work; *discovery.Queue implements it.
type Enqueuer interface {
	Offer(ctx context.Context, chatID, channelID string)
}

// Notifier announces clips; *notify.Dispatcher implements it.
type Notifier interface {
	Send(ctx context.Context, ev notify.Event)
}

// Result reports a successful submission back to the webhook handler.
type Result struct {
	User      string
	Delay     int
	Timestamp time.Time
	Offset    string // "" when the broadcast start is not yet resolvable
}

// Service runs the clip ingestion pipeline: validate, persist, trigger
// discovery, resolve the broadcast, notify. Only the persist step is
// essential; everything after it degrades without failing the request.
type Service struct {
	Clips        Inserter
	Cache        ActiveLookup
	Destinations DestinationResolver
	Discovery    Enqueuer
	Notify       Notifier

	// DefaultDestination is used when no per-channel mapping exists.
	DefaultDestination string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit handles one webhook request. A *ValidationError means nothing was
// persisted; any other error means the clip row could not be written and the
// caller should report an internal failure.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	delay, err := req.Validate()
	if err != nil {
		telemetry.ClipsRejected.Inc()
		return nil, err
	}

	captured := s.now()
	c := &Clip{
		ChannelID:     req.ChannelID,
		ChatID:        req.ChatID,
		Delay:         delay,
		Message:       req.Message,
		UserName:      req.User,
		UserTimestamp: captured,
	}
	if err := s.Clips.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("persist clip: %w", err)
	}
	telemetry.ClipsStored.Inc()
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("channel_id", req.ChannelID), slog.String("component", "clip_ingest"))
	logger.Info("clip stored", slog.String("user", req.User), slog.Int("delay", delay))

	if s.Discovery != nil {
		s.Discovery.Offer(ctx, req.ChatID, req.ChannelID)
	}

	res := &Result{User: req.User, Delay: delay, Timestamp: captured}

	if s.Cache == nil {
		return res, nil
	}
	st, err := s.Cache.Active(ctx, req.ChannelID)
	if err != nil {
		logger.Warn("broadcast lookup failed", slog.Any("err", err))
		return res, nil
	}
	if st == nil || st.StreamStart == nil {
		logger.Info("notification not sent (broadcast not resolvable yet)", slog.Bool("tracked", st != nil))
		return res, nil
	}

	res.Offset = FormatOffset(*st.StreamStart, captured, delay)

	dest := s.DefaultDestination
	if s.Destinations != nil {
		if mapped, err := s.Destinations.DiscordDestination(ctx, req.ChannelID); err != nil {
			logger.Warn("destination lookup failed", slog.Any("err", err))
		} else if mapped != "" {
			dest = mapped
		}
	}
	if s.Notify != nil {
		s.Notify.Send(ctx, notify.Event{
			Destination: dest,
			VideoID:     st.VideoID,
			StreamTitle: st.Title,
			Message:     req.Message,
			User:        strings.TrimPrefix(req.User, "@"),
			Offset:      res.Offset,
			Seconds:     ElapsedSeconds(*st.StreamStart, captured, delay),
		})
	}
	return res, nil
}
