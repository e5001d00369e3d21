// Package youtubeapi wraps the YouTube Data API for the needs of this service:
// broadcast search, live-streaming details, live chat transcript paging (API
// key auth), and highlight comment posting (OAuth, see comments.go).
package youtubeapi

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const (
	// EventLive and EventCompleted are the search eventType filters.
	EventLive      = "live"
	EventCompleted = "completed"
)

// SearchResult is one broadcast found by SearchBroadcasts.
type SearchResult struct {
	VideoID string
	Title   string
}

// Details holds the live-streaming timing fields of a video. Pointers are nil
// when the provider omits the field (e.g. a stream that never went live has
// no actual start; a still-running stream has no end).
type Details struct {
	ActualStart    *time.Time
	ScheduledStart *time.Time
	ActualEnd      *time.Time
	ActiveChatID   string
}

// ChatMessage is one transcript item; Author is empty when the provider could
// not resolve the author details.
type ChatMessage struct {
	Author string
	Text   string
}

// ChatPage is one page of a live chat transcript.
type ChatPage struct {
	Messages      []ChatMessage
	NextPageToken string
}

// Client is the read-side provider client, authenticated with an API key.
type Client struct {
	svc *yt.Service
}

// NewClient builds a Client. Extra options (custom endpoint, http client) are
// forwarded to the underlying service; tests use option.WithEndpoint.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// SearchBroadcasts searches a channel's videos by event type (live or
// completed), most recent first.
func (c *Client) SearchBroadcasts(ctx context.Context, channelID, eventType string, max int64) ([]SearchResult, error) {
	if max <= 0 {
		max = 1
	}
	resp, err := c.svc.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		EventType(eventType).
		Type("video").
		Order("date").
		MaxResults(max).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search broadcasts: %w", err)
	}
	out := make([]SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		r := SearchResult{VideoID: item.Id.VideoId}
		if item.Snippet != nil {
			r.Title = item.Snippet.Title
		}
		out = append(out, r)
	}
	return out, nil
}

// VideoDetails fetches a video's live-streaming details. Returns nil when the
// video does not exist or carries no liveStreamingDetails part.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (*Details, error) {
	resp, err := c.svc.Videos.List([]string{"liveStreamingDetails"}).
		Id(videoID).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil {
		return nil, nil
	}
	d := resp.Items[0].LiveStreamingDetails
	return &Details{
		ActualStart:    parseTime(d.ActualStartTime),
		ScheduledStart: parseTime(d.ScheduledStartTime),
		ActualEnd:      parseTime(d.ActualEndTime),
		ActiveChatID:   d.ActiveLiveChatId,
	}, nil
}

// ChatMessagesPage fetches one page of a live chat transcript. Pass the
// previous page's NextPageToken to continue; an empty token starts over.
func (c *Client) ChatMessagesPage(ctx context.Context, chatID, pageToken string, max int64) (ChatPage, error) {
	call := c.svc.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"}).
		Context(ctx)
	if max > 0 {
		call = call.MaxResults(max)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return ChatPage{}, fmt.Errorf("list chat messages: %w", err)
	}
	page := ChatPage{NextPageToken: resp.NextPageToken}
	page.Messages = make([]ChatMessage, 0, len(resp.Items))
	for _, item := range resp.Items {
		var m ChatMessage
		if item.AuthorDetails != nil {
			m.Author = item.AuthorDetails.DisplayName
		}
		if item.Snippet != nil {
			m.Text = item.Snippet.DisplayMessage
		}
		page.Messages = append(page.Messages, m)
	}
	return page, nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
