package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"notiplay/internal/app"
	"notiplay/internal/config"
	"notiplay/internal/infra/memory"
	"notiplay/internal/infra/postgres"
	infraredis "notiplay/internal/infra/redis"
	"notiplay/internal/logging"
	transport "notiplay/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Color)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	publicURL := strings.TrimSuffix(cfg.Server.PublicURL, "/")
	if publicURL == "" {
		publicURL = "http://localhost:" + finalPort
	}
	avatarURL := publicURL + "/avatars"

	var backend app.Backend
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		backend = postgres.NewStore(pool, avatarURL)
		logger.Info("using postgres backend")
	} else {
		backend = memory.NewBackend(memory.SampleDataset()).WithAvatarURL(avatarURL)
		logger.Warn("postgres not configured, serving in-memory demo data")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	guardTTL := config.TTLDuration(cfg.Guard.TTL, 30*time.Second)

	var quizzes app.QuizRepository
	var guard app.InFlightGuard
	if redisClient != nil {
		quizzes = infraredis.NewQuizCache(redisClient, backend, quizTTL)
		guard = infraredis.NewGuard(redisClient, guardTTL)
	} else {
		quizzes = memory.NewQuizCache(backend, quizTTL)
		guard = memory.NewGuard()
	}

	creditTimeout := config.TTLDuration(cfg.Credit.Timeout, 10*time.Second)
	svc := transport.Services{
		Trivia:      app.NewTriviaService(quizzes, backend, logger, app.WithCreditTimeout(creditTimeout)),
		Redemption:  app.NewRedemptionService(backend, backend, guard, logger),
		News:        app.NewNewsService(backend, backend, backend, backend, backend, logger),
		Profile:     app.NewProfileService(backend, backend, backend, backend, guard, logger),
		Leaderboard: app.NewLeaderboardService(backend),
		Avatars:     backend,
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret not set, every request is anonymous")
	}
	router := transport.NewRouter(svc, transport.NewAuthenticator(cfg.Auth.JWTSecret), logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		logger.Info("starting notiplay", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
