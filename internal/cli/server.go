package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizhub/internal/app"
	"quizhub/internal/config"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
	pginfra "quizhub/internal/infra/postgres"
	redisinfra "quizhub/internal/infra/redis"
	transport "quizhub/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	memStore := memory.NewStore()

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pginfra.NewQuizLoader(pool)
	} else {
		memStore.SeedAccounts(sampleAccounts()...)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	var (
		sessions app.SessionStore     = memStore
		players  app.PlayerRepository = memStore
		accounts app.AccountResolver  = memStore
	)
	if pool != nil {
		pgStore := pginfra.NewStore(pool)
		sessions = pgStore
		players = pgStore
		accounts = pgStore
	}

	orchestrator := app.NewOrchestrator(registry, quizzes, sessions, players, accounts, app.Options{
		QuestionDuration: config.TTLDuration(cfg.Session.QuestionDuration, 10*time.Second),
		LeaderboardCap:   cfg.Session.LeaderboardCap,
		ShuffleQuestions: cfg.Session.Shuffle,
		DefaultScoring:   domain.ScoringKind(cfg.Session.Scoring),
	})
	wsHandler := transport.NewWSHandler(orchestrator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizhub on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Demo identifiers are fixed so the sample quiz survives restarts.
var (
	sampleQuizID      = uuid.MustParse("6f1c24b2-0000-4000-8000-000000000001")
	sampleHostAccount = uuid.MustParse("6f1c24b2-0000-4000-8000-000000000002")
)

func sampleAccounts() []domain.Account {
	return []domain.Account{
		{ID: sampleHostAccount, Username: "host"},
		{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000003"), Username: "alice"},
		{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000004"), Username: "bob"},
	}
}

// sampleQuizzes provides minimal quiz data for running without Postgres.
func sampleQuizzes() map[uuid.UUID]domain.Quiz {
	return map[uuid.UUID]domain.Quiz{
		sampleQuizID: {
			ID:       sampleQuizID,
			Title:    "Warm-up",
			AuthorID: sampleHostAccount,
			Questions: []domain.Question{
				{
					ID:   uuid.MustParse("6f1c24b2-0000-4000-8000-000000000011"),
					Text: "What is 2 + 2?",
					Type: domain.MultipleChoice,
					Answers: []domain.Answer{
						{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000021"), Text: "3", Correct: false},
						{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000022"), Text: "4", Correct: true},
						{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000023"), Text: "5", Correct: false},
					},
				},
				{
					ID:   uuid.MustParse("6f1c24b2-0000-4000-8000-000000000012"),
					Text: "Which planet is closest to the sun?",
					Type: domain.MultipleChoice,
					Answers: []domain.Answer{
						{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000024"), Text: "Mercury", Correct: true},
						{ID: uuid.MustParse("6f1c24b2-0000-4000-8000-000000000025"), Text: "Venus", Correct: false},
					},
				},
			},
		},
	}
}
