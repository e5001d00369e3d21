// Package highlight compiles a completed broadcast's clips into one
// aggregated comment on the broadcast's video.
package highlight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/onnwee/clip-tender/backend/broadcast"
	"github.com/onnwee/clip-tender/backend/clip"
	"github.com/onnwee/clip-tender/backend/telemetry"
)

const (
	reportHeader  = "Clip highlights from this stream:"
	maxMessageLen = 80
)

// OutcomeKind is the closed set of compile results.
type OutcomeKind int

const (
	// KindSkipped: no completed broadcast with confirmed start and end; clips were not queried.
	KindSkipped OutcomeKind = iota
	// KindEmpty: eligible broadcast but no clips captured during it; nothing was posted.
	KindEmpty
	// KindPosted: a report was published.
	KindPosted
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSkipped:
		return "skipped"
	case KindEmpty:
		return "empty"
	case KindPosted:
		return "posted"
	default:
		return "unknown"
	}
}

// Outcome reports what a compile run did.
type Outcome struct {
	Kind    OutcomeKind
	VideoID string
	Clips   int
}

// CompletedResolver finds the broadcast to compile; *broadcast.Cache implements it.
type CompletedResolver interface {
	MostRecentCompleted(ctx context.Context, channelID string) (*broadcast.Completed, error)
}

// ClipSource reads back persisted clips; *clip.Store implements it.
type ClipSource interface {
	ListSince(ctx context.Context, channelID string, since time.Time) ([]clip.Clip, error)
}

// Commenter publishes the report; *youtubeapi.Commenter implements it.
type Commenter interface {
	PostComment(ctx context.Context, videoID, text string) error
}

// Compiler gathers a broadcast's clips and posts one aggregated comment.
// Re-running after a post publishes a duplicate comment; no dedup of previous
// reports is attempted here.
type Compiler struct {
	Cache    CompletedResolver
	Clips    ClipSource
	Comments Commenter
}

// Compile runs one compilation for a channel.
func (c *Compiler) Compile(ctx context.Context, channelID string) (Outcome, error) {
	logger := slog.Default().With(slog.String("channel_id", channelID), slog.String("component", "highlight"))

	completed, err := c.Cache.MostRecentCompleted(ctx, channelID)
	if err != nil {
		return Outcome{}, err
	}
	if completed == nil {
		telemetry.HighlightsSkipped.Inc()
		logger.Info("highlight compile skipped (no eligible completed broadcast)")
		return Outcome{Kind: KindSkipped}, nil
	}

	clips, err := c.Clips.ListSince(ctx, channelID, completed.Start)
	if err != nil {
		return Outcome{}, fmt.Errorf("load clips: %w", err)
	}
	if len(clips) == 0 {
		telemetry.HighlightsSkipped.Inc()
		logger.Info("highlight compile empty (no clips during broadcast)", slog.String("video_id", completed.VideoID))
		return Outcome{Kind: KindEmpty, VideoID: completed.VideoID}, nil
	}

	body := BuildReport(completed.Start, clips)
	if err := c.Comments.PostComment(ctx, completed.VideoID, body); err != nil {
		return Outcome{}, fmt.Errorf("publish report: %w", err)
	}
	telemetry.HighlightsPosted.Inc()
	logger.Info("highlight report posted", slog.String("video_id", completed.VideoID), slog.Int("clips", len(clips)))
	return Outcome{Kind: KindPosted, VideoID: completed.VideoID, Clips: len(clips)}, nil
}

// BuildReport renders the aggregated comment body: a fixed header, then one
// line per clip as "<offset> – <message>".
func BuildReport(start time.Time, clips []clip.Clip) string {
	var b strings.Builder
	b.WriteString(reportHeader)
	for _, c := range clips {
		offset := clip.FormatOffset(start, c.UserTimestamp, c.Delay)
		b.WriteString("\n")
		b.WriteString(offset)
		b.WriteString(" – ")
		b.WriteString(sanitizeMessage(c.Message))
	}
	return b.String()
}

// sanitizeMessage strips embedded newlines and bounds the length so the
// report stays one line per clip.
func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "(no message)"
	}
	if r := []rune(msg); len(r) > maxMessageLen {
		msg = string(r[:maxMessageLen])
	}
	return msg
}
