package youtubeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/clip-tender/backend/config"
)

const provider = "youtube"

// TokenStore persists the OAuth token used for comment posting so workers can
// refresh and reuse it across restarts.
type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, raw string) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, raw string, err error)
}

// Commenter posts top-level comments on videos with the stored write
// credential. It refreshes the access token when it is near expiry.
type Commenter struct {
	cfg   *config.Config
	db    TokenStore
	oauth *oauth2.Config
	opts  []option.ClientOption
}

// NewCommenter builds a Commenter. Extra client options are forwarded to the
// YouTube service (tests use option.WithEndpoint).
func NewCommenter(cfg *config.Config, ts TokenStore, opts ...option.ClientOption) *Commenter {
	scopes := []string{"https://www.googleapis.com/auth/youtube.force-ssl"}
	if cfg.YTScopes != "" {
		// allow comma or space separated
		s := strings.ReplaceAll(cfg.YTScopes, ",", " ")
		if fields := strings.Fields(s); len(fields) > 0 {
			scopes = fields
		}
	}
	oc := &oauth2.Config{
		ClientID:     cfg.YTClientID,
		ClientSecret: cfg.YTClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.YTRedirectURI,
		Scopes:       scopes,
	}
	return &Commenter{cfg: cfg, db: ts, oauth: oc, opts: opts}
}

// AuthCodeURL starts the one-time consent flow for the write credential.
func (c *Commenter) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange completes the consent flow and persists the resulting token.
func (c *Commenter) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	rawBytes, _ := json.Marshal(tok)
	_ = c.db.UpsertOAuthToken(ctx, provider, tok.AccessToken, tok.RefreshToken, tok.Expiry, string(rawBytes))
	return tok, nil
}

func (c *Commenter) refreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	access, refresh, expiry, raw, err := c.db.GetOAuthToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, errors.New("no youtube token stored")
	}
	var tok oauth2.Token
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &tok)
	}
	if tok.AccessToken == "" {
		tok.AccessToken = access
	}
	tok.RefreshToken = refresh
	tok.Expiry = expiry
	if time.Until(tok.Expiry) > 2*time.Minute {
		return &tok, nil
	}
	newTok, err := c.oauth.TokenSource(ctx, &tok).Token()
	if err != nil {
		return &tok, err
	}
	rawBytes, _ := json.Marshal(newTok)
	_ = c.db.UpsertOAuthToken(ctx, provider, newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, string(rawBytes))
	return newTok, nil
}

func (c *Commenter) service(ctx context.Context) (*yt.Service, error) {
	tok, err := c.refreshIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	all := append([]option.ClientOption{option.WithHTTPClient(c.oauth.Client(ctx, tok))}, c.opts...)
	return yt.NewService(ctx, all...)
}

// PostComment publishes one top-level comment on the given video.
func (c *Commenter) PostComment(ctx context.Context, videoID, text string) error {
	if videoID == "" {
		return fmt.Errorf("post comment: empty video id")
	}
	svc, err := c.service(ctx)
	if err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	thread := &yt.CommentThread{
		Snippet: &yt.CommentThreadSnippet{
			VideoId: videoID,
			TopLevelComment: &yt.Comment{
				Snippet: &yt.CommentSnippet{TextOriginal: text},
			},
		},
	}
	if _, err := svc.CommentThreads.Insert([]string{"snippet"}, thread).Context(ctx).Do(); err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	return nil
}
