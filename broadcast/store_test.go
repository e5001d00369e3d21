package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/clip-tender/backend/testutil"
)

func TestStoreLifecycle(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := &Store{DB: database}
	ctx := context.Background()

	channel := "UCbroadcasttestaaaaaaaa1"
	st := &State{
		ChannelID: channel,
		VideoID:   "bcast-video-1",
		Title:     "Live Now",
		Status:    StatusLive,
		ChatID:    "bcast-chat-session-000000001",
	}
	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if st.ID == 0 {
		t.Fatal("insert did not populate id")
	}

	// video_id conflict is an upsert, not an error
	dup := &State{ChannelID: channel, VideoID: "bcast-video-1", Status: StatusLive}
	if err := store.Insert(ctx, dup); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if dup.ID != st.ID {
		t.Fatalf("duplicate insert id = %d, want %d", dup.ID, st.ID)
	}

	got, err := store.ActiveByChannel(ctx, channel)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if got == nil || got.VideoID != "bcast-video-1" {
		t.Fatalf("active = %+v", got)
	}
	if got.StreamStart != nil {
		t.Fatal("fresh row must have nil stream start")
	}

	start := time.Now().UTC().Truncate(time.Second)
	if err := store.SetStreamStart(ctx, got.ID, start); err != nil {
		t.Fatalf("set start: %v", err)
	}
	got, err = store.ActiveByChannel(ctx, channel)
	if err != nil || got.StreamStart == nil {
		t.Fatalf("hydrated read: %+v, %v", got, err)
	}
	if !got.StreamStart.Equal(start) {
		t.Fatalf("stream start = %v, want %v", got.StreamStart, start)
	}

	exists, err := store.ChatSessionExists(ctx, "bcast-chat-session-000000001")
	if err != nil || !exists {
		t.Fatalf("chat session exists = %v, %v", exists, err)
	}
	exists, err = store.ChatSessionExists(ctx, "bcast-chat-session-unknown00")
	if err != nil || exists {
		t.Fatalf("unknown chat session exists = %v, %v", exists, err)
	}

	none, err := store.ActiveByChannel(ctx, "UCuntrackedchannelcccc12")
	if err != nil || none != nil {
		t.Fatalf("untracked channel = %+v, %v; want nil, nil", none, err)
	}
}

func TestStoreBlacklistAndDestinations(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := &Store{DB: database}
	ctx := context.Background()

	if _, err := database.ExecContext(ctx,
		`INSERT INTO channel_blacklist (channel_id) VALUES ('UCblockedchanneldddddd12') ON CONFLICT DO NOTHING`); err != nil {
		t.Fatalf("seed blacklist: %v", err)
	}
	blocked, err := store.Blacklisted(ctx, "UCblockedchanneldddddd12")
	if err != nil || !blocked {
		t.Fatalf("blacklisted = %v, %v", blocked, err)
	}
	blocked, err = store.Blacklisted(ctx, "UCfreechanneleeeeeeeee12")
	if err != nil || blocked {
		t.Fatalf("unexpected blacklist hit: %v, %v", blocked, err)
	}

	if _, err := database.ExecContext(ctx,
		`INSERT INTO discord_channel_map (channel_id, discord_channel_id) VALUES ('UCmappedchannelffffff123', 'dc-123')
		 ON CONFLICT (channel_id) DO UPDATE SET discord_channel_id='dc-123'`); err != nil {
		t.Fatalf("seed map: %v", err)
	}
	dest, err := store.DiscordDestination(ctx, "UCmappedchannelffffff123")
	if err != nil || dest != "dc-123" {
		t.Fatalf("destination = %q, %v", dest, err)
	}
	dest, err = store.DiscordDestination(ctx, "UCunmappedchannelgggg123")
	if err != nil || dest != "" {
		t.Fatalf("unmapped destination = %q, %v; want empty", dest, err)
	}
}
