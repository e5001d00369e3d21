// Command backend is the main entrypoint for the clip-tender API and
// background workers. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts background jobs: the broadcast discovery worker, the highlight
//     compile job, and the OAuth token refresher for the YouTube credential.
//   - Exposes the HTTP API: the clip webhook, reports, cron endpoints,
//     /healthz, /readyz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/joho/godotenv"
	"github.com/onnwee/clip-tender/backend/broadcast"
	"github.com/onnwee/clip-tender/backend/clip"
	"github.com/onnwee/clip-tender/backend/config"
	"github.com/onnwee/clip-tender/backend/db"
	"github.com/onnwee/clip-tender/backend/discordapi"
	"github.com/onnwee/clip-tender/backend/discovery"
	"github.com/onnwee/clip-tender/backend/highlight"
	"github.com/onnwee/clip-tender/backend/leaderboard"
	"github.com/onnwee/clip-tender/backend/notify"
	"github.com/onnwee/clip-tender/backend/oauth"
	"github.com/onnwee/clip-tender/backend/server"
	"github.com/onnwee/clip-tender/backend/telemetry"
	"github.com/onnwee/clip-tender/backend/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience; production uses real env)
	_ = godotenv.Load("backend/.env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("clip-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Migrations: versioned (golang-migrate) first, embedded SQL as fallback
	// for deployments without a schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting embedded SQL fallback",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("embedded SQL migration completed", slog.String("component", "db_migrate"))
	} else {
		slog.Info("versioned migrations completed", slog.String("component", "db_migrate"))
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Read-side YouTube client. Without an API key the webhook still persists
	// clips; broadcast resolution and reports are disabled.
	var provider *youtubeapi.Client
	if err := cfg.ValidateProviderReady(); err != nil {
		slog.Warn("video provider disabled", slog.Any("err", err))
	} else {
		provider, err = youtubeapi.NewClient(ctx, cfg.YTAPIKey)
		if err != nil {
			slog.Error("youtube client init failed", slog.Any("err", err))
			os.Exit(1)
		}
	}

	broadcasts := &broadcast.Store{DB: database}
	clips := &clip.Store{DB: database}
	tokenStore := &db.TokenStoreAdapter{DB: database}

	var discord *discordapi.Client
	if err := cfg.ValidateNotifyReady(); err != nil {
		slog.Warn("discord notifications disabled", slog.Any("err", err))
	} else {
		discord = &discordapi.Client{BotToken: cfg.DiscordBotToken}
	}

	var commenter *youtubeapi.Commenter
	if err := cfg.ValidateCommentReady(); err != nil {
		slog.Warn("highlight comment posting disabled", slog.Any("err", err))
	} else {
		commenter = youtubeapi.NewCommenter(cfg, tokenStore)
	}

	svc := &clip.Service{
		Clips:              clips,
		Destinations:       broadcasts,
		DefaultDestination: cfg.DiscordChannelID,
	}
	var boards server.LeaderboardSource
	var compiler server.HighlightCompiler
	if provider != nil {
		cache := &broadcast.Cache{Store: broadcasts, Provider: provider}
		svc.Cache = cache

		queue := discovery.New(broadcasts, provider, cfg.DiscoveryTick, cfg.DiscoveryBuffer)
		queue.Start(ctx)
		svc.Discovery = queue

		boards = &leaderboard.Aggregator{Cache: cache, Chat: provider}

		if commenter != nil {
			hc := &highlight.Compiler{Cache: cache, Clips: clips, Comments: commenter}
			compiler = hc
			if len(cfg.HighlightChannels) > 0 {
				go highlight.StartCompileJob(ctx, database, hc, cfg.HighlightChannels, cfg.HighlightInterval)
			}
		}
	}
	if discord != nil {
		svc.Notify = &notify.Dispatcher{Client: discord}
	}

	// Refresh the comment-posting credential in the background.
	if commenter != nil {
		oc := &oauth2.Config{ClientID: cfg.YTClientID, ClientSecret: cfg.YTClientSecret, Endpoint: google.Endpoint, RedirectURL: cfg.YTRedirectURI}
		oauth.StartRefresher(ctx, tokenStore, "youtube", 10*time.Minute, 20*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, error) {
			newTok, err := oc.TokenSource(rctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
			if err != nil {
				return "", "", time.Time{}, err
			}
			return newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, nil
		})
	}

	// pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	var flow server.OAuthFlow
	if commenter != nil {
		flow = commenter
	}
	var bot server.BotIdentity
	if discord != nil {
		bot = discord
	}
	handlers := server.NewHandlers(database, cfg, svc, boards, compiler, bot, flow)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, handlers, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
