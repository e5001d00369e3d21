package clip

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Clip is the persisted record of a flagged moment. Rows are written exactly
// once by the ingestion path and never mutated; aggregators read them back by
// channel and capture window.
type Clip struct {
	ID            int64
	ChannelID     string
	ChatID        string
	Delay         int
	Message       string
	UserName      string
	UserTimestamp time.Time
}

// Store provides clip table access over Postgres.
type Store struct {
	DB *sql.DB
}

// Insert persists a new clip row. This is the one essential write of the
// ingestion path; failures propagate to the caller.
func (s *Store) Insert(ctx context.Context, c *Clip) error {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO clips (channel_id, chat_id, delay, message, user_name, user_timestamp, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING id`,
		c.ChannelID, c.ChatID, c.Delay, c.Message, c.UserName, c.UserTimestamp).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

// ListSince returns a channel's clips captured at or after the given instant,
// ordered by capture time ascending.
func (s *Store) ListSince(ctx context.Context, channelID string, since time.Time) ([]Clip, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, channel_id, chat_id, delay, message, user_name, user_timestamp
		 FROM clips WHERE channel_id=$1 AND user_timestamp>=$2 ORDER BY user_timestamp ASC`,
		channelID, since)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	var out []Clip
	for rows.Next() {
		var c Clip
		if err := rows.Scan(&c.ID, &c.ChannelID, &c.ChatID, &c.Delay, &c.Message, &c.UserName, &c.UserTimestamp); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
