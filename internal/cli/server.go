package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/app"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/config"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/infra/memory"
	pgbank "github.com/amahmoodi1379-glitch/psynex-exambot/internal/infra/postgres"
	redisinfra "github.com/amahmoodi1379-glitch/psynex-exambot/internal/infra/redis"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
	transport "github.com/amahmoodi1379-glitch/psynex-exambot/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam room service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	bankTTL := config.TTLDuration(cfg.Quiz.BankTTL, 10*time.Minute)
	var questions app.QuestionSource
	switch {
	case redisClient != nil && pool != nil:
		questions = redisinfra.NewQuestionRepository(redisClient, pgbank.NewQuestionLoader(pool), bankTTL)
	default:
		questions = memory.NewStaticQuestionSource(sampleQuestionPools())
	}

	var roomStore app.RoomStore
	var bucket ref.BucketStore
	var tokens ref.TokenStore
	if redisClient != nil {
		roomStore = redisinfra.NewRoomStore(redisClient)
		bucket = redisinfra.NewAliasStore(redisClient)
		tokens = redisinfra.NewTokenStore(redisClient)
	} else {
		roomStore = memory.NewRoomStore()
		bucket = memory.NewAliasStore()
		tokens = memory.NewTokenStore()
	}

	refs := ref.NewService(bucket)
	scheduler := app.NewTimerScheduler()
	defer scheduler.Close()

	service := app.NewRoomService(roomStore, questions, app.NewLogMessenger(logger), scheduler, refs).
		WithLogger(logger).
		WithQuestionDuration(config.TTLDuration(cfg.Quiz.QuestionDuration, app.DefaultQuestionDuration)).
		WithBotUsername(cfg.Bot.Username)
	scheduler.SetHandler(func(roomID string) {
		service.OnTimer(context.Background(), roomID)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewRPCHandler(service, refs, logger).Register(mux)
	transport.NewTokenHandler(tokens).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service, logger).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting exam room service", "port", finalPort)
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

// sampleQuestionPools provides a minimal bank for running without Postgres.
func sampleQuestionPools() map[memory.PoolKey][]domain.Question {
	konkoori := make([]domain.Question, 0, 10)
	taalifi := make([]domain.Question, 0, 10)
	for i := 1; i <= 10; i++ {
		konkoori = append(konkoori, domain.Question{
			ID:      fmt.Sprintf("demo-k-%d", i),
			Prompt:  fmt.Sprintf("Demo exam question %d", i),
			Options: []string{"first", "second", "third", "fourth"},
			Correct: i % 4,
		})
		taalifi = append(taalifi, domain.Question{
			ID:      fmt.Sprintf("demo-t-%d", i),
			Prompt:  fmt.Sprintf("Demo authored question %d", i),
			Options: []string{"first", "second", "third", "fourth"},
			Correct: (i + 1) % 4,
		})
	}
	return map[memory.PoolKey][]domain.Question{
		{CourseID: "demo", Template: domain.TemplateKonkoori}: konkoori,
		{CourseID: "demo", Template: domain.TemplateTaalifi}:  taalifi,
	}
}
