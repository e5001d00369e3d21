package youtubeapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/onnwee/clip-tender/backend/testutil"
)

func newTestClient(t *testing.T, m *testutil.MockYouTubeServer) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", option.WithEndpoint(m.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestSearchBroadcasts(t *testing.T) {
	m := testutil.NewMockYouTubeServer(t)
	m.MockSearchResponse([][2]string{{"vid-1", "Live Stream"}, {"vid-2", "Older Stream"}})
	c := newTestClient(t, m)

	got, err := c.SearchBroadcasts(context.Background(), "UCchan", EventLive, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %+v", got)
	}
	if got[0].VideoID != "vid-1" || got[0].Title != "Live Stream" {
		t.Fatalf("results[0] = %+v", got[0])
	}
}

func TestSearchBroadcastsEmpty(t *testing.T) {
	m := testutil.NewMockYouTubeServer(t)
	m.MockSearchResponse(nil)
	c := newTestClient(t, m)

	got, err := c.SearchBroadcasts(context.Background(), "UCchan", EventCompleted, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}
}

func TestVideoDetails(t *testing.T) {
	m := testutil.NewMockYouTubeServer(t)
	m.MockVideoDetailsResponse("2025-06-01T20:00:05Z", "2025-06-01T20:00:00Z", "", "chat-abc")
	c := newTestClient(t, m)

	d, err := c.VideoDetails(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if d == nil {
		t.Fatal("details = nil")
	}
	wantActual := time.Date(2025, 6, 1, 20, 0, 5, 0, time.UTC)
	if d.ActualStart == nil || !d.ActualStart.Equal(wantActual) {
		t.Errorf("actual start = %v", d.ActualStart)
	}
	if d.ScheduledStart == nil {
		t.Error("scheduled start = nil")
	}
	if d.ActualEnd != nil {
		t.Errorf("actual end = %v, want nil for a running stream", d.ActualEnd)
	}
	if d.ActiveChatID != "chat-abc" {
		t.Errorf("chat id = %q", d.ActiveChatID)
	}
}

func TestVideoDetailsMissingVideo(t *testing.T) {
	m := testutil.NewMockYouTubeServer(t)
	m.Handlers["/youtube/v3/videos"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}
	c := newTestClient(t, m)

	d, err := c.VideoDetails(context.Background(), "vid-nope")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if d != nil {
		t.Fatalf("details = %+v, want nil for missing video", d)
	}
}

func TestChatMessagesPage(t *testing.T) {
	m := testutil.NewMockYouTubeServer(t)
	m.MockChatMessagesResponse([]string{"alice", "bob", "alice"}, "token-2")
	c := newTestClient(t, m)

	page, err := c.ChatMessagesPage(context.Background(), "chat-abc", "", 200)
	if err != nil {
		t.Fatalf("chat page: %v", err)
	}
	if len(page.Messages) != 3 {
		t.Fatalf("messages = %+v", page.Messages)
	}
	if page.Messages[0].Author != "alice" || page.Messages[1].Author != "bob" {
		t.Fatalf("messages = %+v", page.Messages)
	}
	if page.NextPageToken != "token-2" {
		t.Fatalf("next token = %q", page.NextPageToken)
	}
}

func TestParseTime(t *testing.T) {
	if parseTime("") != nil {
		t.Error("empty string must parse to nil")
	}
	if parseTime("not-a-time") != nil {
		t.Error("garbage must parse to nil")
	}
	got := parseTime("2025-06-01T20:00:05+02:00")
	if got == nil || !got.Equal(time.Date(2025, 6, 1, 18, 0, 5, 0, time.UTC)) {
		t.Errorf("parseTime = %v", got)
	}
}
