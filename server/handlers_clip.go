package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/clip-tender/backend/clip"
	"github.com/onnwee/clip-tender/backend/telemetry"
)

// clipParams carries the webhook fields after merging body and query values.
type clipParams struct {
	User      string `json:"user"`
	ChannelID string `json:"channelid"`
	ChatID    string `json:"chatId"`
	Msg       string `json:"msg"`
	Delay     string `json:"delay"`
}

// readClipParams merges request body (JSON or form) and query parameters.
// Body values win, matching what chat bots actually send.
func readClipParams(r *http.Request) clipParams {
	var p clipParams

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			User      string          `json:"user"`
			ChannelID string          `json:"channelid"`
			ChannelId string          `json:"channelId"`
			ChatID    string          `json:"chatId"`
			Msg       string          `json:"msg"`
			Delay     json.RawMessage `json:"delay"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			p.User = body.User
			p.ChannelID = body.ChannelID
			if p.ChannelID == "" {
				p.ChannelID = body.ChannelId
			}
			p.ChatID = body.ChatID
			p.Msg = body.Msg
			// delay may arrive as a JSON number or a string
			p.Delay = strings.Trim(string(body.Delay), `"`)
		}
	} else {
		_ = r.ParseForm()
		p.User = r.PostForm.Get("user")
		p.ChannelID = r.PostForm.Get("channelid")
		if p.ChannelID == "" {
			p.ChannelID = r.PostForm.Get("channelId")
		}
		p.ChatID = r.PostForm.Get("chatId")
		p.Msg = r.PostForm.Get("msg")
		p.Delay = r.PostForm.Get("delay")
	}

	q := r.URL.Query()
	if p.User == "" {
		p.User = q.Get("user")
	}
	if p.ChannelID == "" {
		p.ChannelID = q.Get("channelid")
	}
	if p.ChannelID == "" {
		p.ChannelID = q.Get("channelId")
	}
	if p.ChatID == "" {
		p.ChatID = q.Get("chatId")
	}
	if p.Msg == "" {
		p.Msg = q.Get("msg")
	}
	if p.Delay == "" {
		p.Delay = q.Get("delay")
	}
	return p
}

// HandleClip is the webhook entry point. Any HTTP method is accepted since
// chat bots commonly issue GET fetches. Rejections carry a human-readable
// reason; only a failed clip write is a 500.
func (h *Handlers) HandleClip(w http.ResponseWriter, r *http.Request) {
	if h.clips == nil {
		http.Error(w, "clip ingestion not configured", http.StatusServiceUnavailable)
		return
	}

	p := readClipParams(r)
	req := clip.Request{
		User:      p.User,
		ChannelID: p.ChannelID,
		ChatID:    p.ChatID,
		Message:   p.Msg,
		Delay:     p.Delay,
	}

	res, err := h.clips.Submit(r.Context(), req)
	if err != nil {
		var verr *clip.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Reason, http.StatusBadRequest)
			return
		}
		telemetry.LoggerWithCorr(r.Context()).Error("clip submit failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Timestamped (with -%ds delay) by %s. Tool used: %s", res.Delay, res.User, h.cfg.ToolName)
}
