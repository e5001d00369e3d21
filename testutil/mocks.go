package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockYouTubeServer is a test server that mocks YouTube Data API responses.
// Point the client at it with option.WithEndpoint(m.URL).
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockYouTubeServer creates a new mock YouTube API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockSearchResponse adds a handler for the search endpoint. Each entry is a
// {videoId, title} pair.
func (m *MockYouTubeServer) MockSearchResponse(items [][2]string) {
	m.Handlers["/youtube/v3/search"] = func(w http.ResponseWriter, r *http.Request) {
		list := make([]map[string]any, 0, len(items))
		for _, it := range items {
			list = append(list, map[string]any{
				"id":      map[string]string{"videoId": it[0]},
				"snippet": map[string]string{"title": it[1]},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": list}) //nolint:errcheck // test mock response
	}
}

// MockVideoDetailsResponse adds a handler for the videos endpoint with the
// given liveStreamingDetails fields; empty strings are omitted.
func (m *MockYouTubeServer) MockVideoDetailsResponse(actualStart, scheduledStart, actualEnd, activeChatID string) {
	m.Handlers["/youtube/v3/videos"] = func(w http.ResponseWriter, r *http.Request) {
		details := map[string]string{}
		if actualStart != "" {
			details["actualStartTime"] = actualStart
		}
		if scheduledStart != "" {
			details["scheduledStartTime"] = scheduledStart
		}
		if actualEnd != "" {
			details["actualEndTime"] = actualEnd
		}
		if activeChatID != "" {
			details["activeLiveChatId"] = activeChatID
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"items": []map[string]any{{"liveStreamingDetails": details}},
		})
	}
}

// MockChatMessagesResponse adds a handler for the live chat messages endpoint
// serving one fixed page of author display names.
func (m *MockYouTubeServer) MockChatMessagesResponse(authors []string, nextPageToken string) {
	m.Handlers["/youtube/v3/liveChat/messages"] = func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]any, 0, len(authors))
		for _, a := range authors {
			items = append(items, map[string]any{
				"authorDetails": map[string]string{"displayName": a},
			})
		}
		resp := map[string]any{"items": items}
		if nextPageToken != "" {
			resp["nextPageToken"] = nextPageToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp) //nolint:errcheck // test mock response
	}
}

// MockDiscordServer is a test server that mocks the Discord REST API.
type MockDiscordServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockDiscordServer creates a new mock Discord API server.
func NewMockDiscordServer(t *testing.T) *MockDiscordServer {
	t.Helper()
	m := &MockDiscordServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockCreateMessage adds a handler for channel message creation.
func (m *MockDiscordServer) MockCreateMessage(channelID string, status int) {
	m.Handlers["/channels/"+channelID+"/messages"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"}) //nolint:errcheck // test mock response
	}
}

// MockCurrentUser adds a handler for the bot identity endpoint.
func (m *MockDiscordServer) MockCurrentUser(username string) {
	m.Handlers["/users/@me"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "42", "username": username}) //nolint:errcheck // test mock response
	}
}
