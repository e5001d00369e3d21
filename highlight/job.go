package highlight

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/onnwee/clip-tender/backend/telemetry"
)

// StartCompileJob periodically compiles highlights for each configured
// channel. An immediate run happens at boot so a restart right after a stream
// ends does not wait a full interval.
func StartCompileJob(ctx context.Context, dbc *sql.DB, compiler *Compiler, channels []string, interval time.Duration) {
	if len(channels) == 0 {
		slog.Info("highlight job disabled (no channels configured)", slog.String("component", "highlight"))
		return
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	slog.Info("highlight job starting", slog.Duration("interval", interval), slog.Int("channels", len(channels)), slog.String("component", "highlight"))
	compileAll(ctx, dbc, compiler, channels)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("highlight job stopped", slog.String("component", "highlight"))
			return
		case <-ticker.C:
			compileAll(ctx, dbc, compiler, channels)
		}
	}
}

func compileAll(ctx context.Context, dbc *sql.DB, compiler *Compiler, channels []string) {
	if dbc != nil {
		_, _ = dbc.ExecContext(ctx, `INSERT INTO kv (key,value,updated_at) VALUES ('job_highlight_last', to_char(NOW() AT TIME ZONE 'UTC','YYYY-MM-DD"T"HH24:MI:SS.MS"Z"'), NOW())
			ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`)
	}
	for _, ch := range channels {
		channel := ch
		telemetry.TimeFunc(telemetry.CompileDuration, func() {
			outcome, err := compiler.Compile(ctx, channel)
			if err != nil {
				slog.Warn("highlight compile failed", slog.String("channel_id", channel), slog.Any("err", err), slog.String("component", "highlight"))
				return
			}
			slog.Info("highlight compile finished", slog.String("channel_id", channel), slog.String("outcome", outcome.Kind.String()), slog.Int("clips", outcome.Clips), slog.String("component", "highlight"))
		})
	}
}
