// Package leaderboard ranks chat participants of a channel's most recent
// completed broadcast by message count.
package leaderboard

import (
	"context"
	"log/slog"
	"sort"

	"github.com/onnwee/clip-tender/backend/broadcast"
	"github.com/onnwee/clip-tender/backend/telemetry"
	"github.com/onnwee/clip-tender/backend/youtubeapi"
)

const defaultPageSize = 200

// Entry is one ranked participant.
type Entry struct {
	User     string `json:"user"`
	Messages int    `json:"messages"`
}

// CompletedResolver finds the broadcast to aggregate; *broadcast.Cache
// implements it.
type CompletedResolver interface {
	MostRecentCompleted(ctx context.Context, channelID string) (*broadcast.Completed, error)
}

// ChatPager fetches transcript pages; *youtubeapi.Client implements it.
type ChatPager interface {
	ChatMessagesPage(ctx context.Context, chatID, pageToken string, max int64) (youtubeapi.ChatPage, error)
}

// Aggregator pages through a full chat transcript and counts messages per
// author display name.
type Aggregator struct {
	Cache    CompletedResolver
	Chat     ChatPager
	PageSize int64
}

func (a *Aggregator) pageSize() int64 {
	if a.PageSize > 0 {
		return a.PageSize
	}
	return defaultPageSize
}

// TopChatters returns the limit highest-count participants, descending.
// Any provider failure aborts the aggregation and yields an empty ranking
// (logged): a partial leaderboard is misleading, so none is returned at all.
func (a *Aggregator) TopChatters(ctx context.Context, channelID string, limit int) []Entry {
	if limit <= 0 {
		return nil
	}
	logger := slog.Default().With(slog.String("channel_id", channelID), slog.String("component", "leaderboard"))

	completed, err := a.Cache.MostRecentCompleted(ctx, channelID)
	if err != nil {
		logger.Warn("completed broadcast lookup failed", slog.Any("err", err))
		return nil
	}
	if completed == nil || completed.ChatID == "" {
		logger.Info("no completed broadcast with chat transcript")
		return nil
	}

	counts := make(map[string]int)
	order := make([]string, 0) // first-seen order keeps ties stable
	pageToken := ""
	for {
		page, err := a.Chat.ChatMessagesPage(ctx, completed.ChatID, pageToken, a.pageSize())
		if err != nil {
			logger.Warn("chat transcript page failed", slog.Any("err", err))
			return nil
		}
		telemetry.LeaderboardPages.Inc()
		for _, m := range page.Messages {
			if m.Author == "" {
				continue
			}
			if _, seen := counts[m.Author]; !seen {
				order = append(order, m.Author)
			}
			counts[m.Author]++
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	entries := make([]Entry, 0, len(order))
	for _, user := range order {
		entries = append(entries, Entry{User: user, Messages: counts[user]})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Messages > entries[j].Messages })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	logger.Info("leaderboard computed", slog.Int("participants", len(counts)), slog.Int("returned", len(entries)))
	return entries
}
