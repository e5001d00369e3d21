package discordapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostMessage(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	c := &Client{BotToken: "tok", BaseURL: srv.URL}
	err := c.PostMessage(context.Background(), "chan-1", []Embed{{Title: "hello"}})
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if gotAuth != "Bot tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotPath != "/channels/chan-1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	embeds, ok := gotBody["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestPostMessageNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Missing Access"}`))
	}))
	defer srv.Close()

	c := &Client{BotToken: "tok", BaseURL: srv.URL}
	err := c.PostMessage(context.Background(), "chan-1", nil)
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if !strings.Contains(err.Error(), "Missing Access") {
		t.Errorf("error should carry response body: %v", err)
	}
}

func TestPostMessageRequiresCredentials(t *testing.T) {
	c := &Client{}
	if err := c.PostMessage(context.Background(), "chan-1", nil); err == nil {
		t.Fatal("expected error without bot token")
	}
	c = &Client{BotToken: "tok"}
	if err := c.PostMessage(context.Background(), "", nil); err == nil {
		t.Fatal("expected error without channel id")
	}
}

func TestCurrentUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bot tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "42", "username": "clipbot"})
	}))
	defer srv.Close()

	c := &Client{BotToken: "tok", BaseURL: srv.URL}
	name, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if name != "clipbot" {
		t.Fatalf("username = %q", name)
	}
}

func TestCurrentUserUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized"}`))
	}))
	defer srv.Close()

	c := &Client{BotToken: "bad", BaseURL: srv.URL}
	if _, err := c.CurrentUser(context.Background()); err == nil {
		t.Fatal("expected error on 401")
	}
}
