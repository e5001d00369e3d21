// Package broadcast tracks the active or most recent broadcast per channel.
// The Store owns every write to the broadcast_state table; the Cache layers
// lazy start-time hydration on top of it.
package broadcast

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	StatusLive      = "live"
	StatusCompleted = "completed"
)

// State is the cached record of a channel's broadcast. A row is logically
// superseded, not deleted, when a newer broadcast for the channel is
// discovered. StreamStart stays nil until hydrated from the video provider.
type State struct {
	ID          int64
	ChannelID   string
	VideoID     string
	Title       string
	Status      string
	StreamStart *time.Time
	StreamEnd   *time.Time
	ChatID      string
	Marked      bool
}

// Store provides broadcast_state, channel_blacklist, and discord_channel_map
// access over Postgres.
type Store struct {
	DB *sql.DB
}

// ActiveByChannel returns the channel's latest live-status row, or nil when
// no broadcast is tracked.
func (s *Store) ActiveByChannel(ctx context.Context, channelID string) (*State, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, channel_id, video_id, title, status, stream_start_time, stream_end_time, chat_id, marked
		 FROM broadcast_state WHERE channel_id=$1 AND status=$2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		channelID, StatusLive)
	st, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active broadcast lookup: %w", err)
	}
	return st, nil
}

// ChatSessionExists reports whether any broadcast row was registered under the
// given chat session. Used for discovery dedup.
func (s *Store) ChatSessionExists(ctx context.Context, chatID string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM broadcast_state WHERE chat_id=$1`, chatID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("chat session lookup: %w", err)
	}
	return n > 0, nil
}

// Insert registers a newly discovered broadcast.
func (s *Store) Insert(ctx context.Context, st *State) error {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO broadcast_state (channel_id, video_id, title, status, stream_start_time, stream_end_time, chat_id, marked, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
		 ON CONFLICT (video_id) DO UPDATE SET updated_at=NOW()
		 RETURNING id`,
		st.ChannelID, st.VideoID, st.Title, st.Status, st.StreamStart, st.StreamEnd, st.ChatID, st.Marked).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("insert broadcast state: %w", err)
	}
	return nil
}

// SetStreamStart persists a hydrated start time back into the row.
func (s *Store) SetStreamStart(ctx context.Context, id int64, start time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE broadcast_state SET stream_start_time=$1, updated_at=NOW() WHERE id=$2`, start, id)
	if err != nil {
		return fmt.Errorf("set stream start: %w", err)
	}
	return nil
}

// Blacklisted reports whether a channel is excluded from discovery.
func (s *Store) Blacklisted(ctx context.Context, channelID string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM channel_blacklist WHERE channel_id=$1`, channelID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}

// DiscordDestination returns the per-channel notification destination, or ""
// when no mapping exists (callers fall back to the configured default).
func (s *Store) DiscordDestination(ctx context.Context, channelID string) (string, error) {
	var dest string
	err := s.DB.QueryRowContext(ctx,
		`SELECT discord_channel_id FROM discord_channel_map WHERE channel_id=$1`, channelID).Scan(&dest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("discord destination lookup: %w", err)
	}
	return dest, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*State, error) {
	var st State
	var start, end sql.NullTime
	if err := row.Scan(&st.ID, &st.ChannelID, &st.VideoID, &st.Title, &st.Status, &start, &end, &st.ChatID, &st.Marked); err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		st.StreamStart = &t
	}
	if end.Valid {
		t := end.Time
		st.StreamEnd = &t
	}
	return &st, nil
}
