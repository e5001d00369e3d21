// Package discordapi contains a minimal Discord REST client for posting clip
// embeds to a channel and probing the bot credential, using a bot token.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const defaultBaseURL = "https://discord.com/api/v10"

// Embed is the subset of Discord's embed object this service sends.
type Embed struct {
	Title  string       `json:"title,omitempty"`
	URL    string       `json:"url,omitempty"`
	Image  *EmbedImage  `json:"image,omitempty"`
	Fields []EmbedField `json:"fields,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Client talks to the Discord REST API.
type Client struct {
	BotToken   string
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// PostMessage sends one embed-carrying message to a channel.
func (c *Client) PostMessage(ctx context.Context, channelID string, embeds []Embed) error {
	if c.BotToken == "" {
		return errors.New("missing discord bot token")
	}
	if channelID == "" {
		return errors.New("missing discord channel id")
	}
	payload, err := json.Marshal(map[string]any{"embeds": embeds})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	url := fmt.Sprintf("%s/channels/%s/messages", c.base(), channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("discord message post failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

// CurrentUser fetches the bot's own username; used as a credential keepalive probe.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	if c.BotToken == "" {
		return "", errors.New("missing discord bot token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/users/@me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	resp, err := c.http().Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("discord user probe failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Username, nil
}
