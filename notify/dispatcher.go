// Package notify delivers clip events to Discord on a best-effort basis.
// Delivery failures are logged and never surfaced to clip submitters.
package notify

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/onnwee/clip-tender/backend/discordapi"
	"github.com/onnwee/clip-tender/backend/telemetry"
)

const defaultTitle = "📎 New Clip"

// Poster is the outbound message surface; *discordapi.Client implements it.
type Poster interface {
	PostMessage(ctx context.Context, channelID string, embeds []discordapi.Embed) error
}

// Event carries everything needed to announce one clip. Offset and Seconds
// describe the same stream position; the producer computes both.
type Event struct {
	Destination string // Discord channel id
	VideoID     string
	StreamTitle string
	Message     string
	User        string
	Offset      string // formatted stream offset, e.g. "04:30"
	Seconds     int    // same offset in whole seconds, for the deep link
}

// Dispatcher posts clip events with a bounded timeout. It is fire-and-forget:
// Send never returns an error.
type Dispatcher struct {
	Client  Poster
	Timeout time.Duration
}

func (d *Dispatcher) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 10 * time.Second
}

// Send announces a clip. A missing destination, video id, or offset makes it
// a logged no-op: the clip is already persisted and a later highlight compile
// will still pick it up.
func (d *Dispatcher) Send(ctx context.Context, ev Event) {
	if ev.Destination == "" || ev.VideoID == "" || ev.Offset == "" {
		telemetry.NotificationsSkipped.Inc()
		slog.Warn("notification skipped (missing data)",
			slog.Bool("has_destination", ev.Destination != ""),
			slog.Bool("has_video", ev.VideoID != ""),
			slog.Bool("has_offset", ev.Offset != ""),
			slog.String("component", "notify"))
		return
	}
	title := ev.Message
	if title == "" {
		title = defaultTitle
	}
	streamTitle := ev.StreamTitle
	if streamTitle == "" {
		streamTitle = "Unknown"
	}
	user := ev.User
	if user == "" {
		user = "Unknown"
	}
	embed := discordapi.Embed{
		Title: title,
		URL:   "https://youtube.com/watch?v=" + ev.VideoID + "&t=" + strconv.Itoa(ev.Seconds) + "s",
		Image: &discordapi.EmbedImage{URL: "https://img.youtube.com/vi/" + ev.VideoID + "/maxresdefault.jpg"},
		Fields: []discordapi.EmbedField{
			{Name: "🎬 Stream", Value: streamTitle},
			{Name: "👤 By", Value: user, Inline: true},
			{Name: "⏰ Time", Value: ev.Offset, Inline: true},
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()
	if err := d.Client.PostMessage(sendCtx, ev.Destination, []discordapi.Embed{embed}); err != nil {
		telemetry.NotificationsFailed.Inc()
		slog.Error("notification send failed", slog.String("destination", ev.Destination), slog.String("video_id", ev.VideoID), slog.Any("err", err), slog.String("component", "notify"))
		return
	}
	telemetry.NotificationsSent.Inc()
	slog.Info("notification sent", slog.String("video_id", ev.VideoID), slog.String("offset", ev.Offset), slog.String("component", "notify"))
}
