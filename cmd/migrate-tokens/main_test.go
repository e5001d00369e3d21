package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/onnwee/clip-tender/backend/crypto"
	"github.com/onnwee/clip-tender/backend/testutil"
)

func newTestEncryptor(t *testing.T) crypto.Encryptor {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	enc, err := crypto.NewAESEncryptor(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	return enc
}

func TestFetchAndEncryptPlaintextRows(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := database.ExecContext(ctx,
		`INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, scope, encryption_version)
		 VALUES ('youtube', 'plain-access', 'plain-refresh', $1, '', 0)
		 ON CONFLICT (provider) DO UPDATE SET
		   access_token='plain-access', refresh_token='plain-refresh', encryption_version=0`,
		time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("seed token: %v", err)
	}

	rows, err := fetchPlaintextRows(ctx, database)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var target *tokenRow
	for i := range rows {
		if rows[i].Provider == "youtube" {
			target = &rows[i]
		}
	}
	if target == nil {
		t.Fatal("seeded plaintext row not returned")
	}
	if target.AccessToken != "plain-access" || target.RefreshToken != "plain-refresh" {
		t.Fatalf("unexpected row: %+v", target)
	}

	enc := newTestEncryptor(t)
	if err := encryptRow(ctx, database, enc, *target); err != nil {
		t.Fatalf("encrypt row: %v", err)
	}

	var access string
	var version int
	if err := database.QueryRowContext(ctx,
		`SELECT access_token, encryption_version FROM oauth_tokens WHERE provider='youtube'`).
		Scan(&access, &version); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if version != 1 {
		t.Fatalf("encryption_version = %d, want 1", version)
	}
	if access == "plain-access" {
		t.Fatal("access token still plaintext")
	}
	got, err := crypto.DecryptString(enc, access)
	if err != nil {
		t.Fatalf("decrypt stored token: %v", err)
	}
	if got != "plain-access" {
		t.Fatalf("decrypted %q, want plain-access", got)
	}

	remaining, err := fetchPlaintextRows(ctx, database)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	for _, r := range remaining {
		if r.Provider == "youtube" {
			t.Fatal("encrypted row still listed as plaintext")
		}
	}
}
