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

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/config"
	"topic-quiz-service/internal/infra/memory"
	pginfra "topic-quiz-service/internal/infra/postgres"
	redisinfra "topic-quiz-service/internal/infra/redis"
	transport "topic-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 30*time.Minute)
	answersTTL := config.TTLDuration(cfg.Answers.TTL, 10*time.Minute)
	tokenTTL := config.TTLDuration(cfg.Admin.TokenTTL, 12*time.Hour)

	var (
		topics    app.TopicStore
		questions app.QuestionStore
		results   app.ResultStore
		admins    app.AdminStore
		sampler   app.QuestionSampler
		answers   app.AnswerKeyRepository
	)

	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := pginfra.NewStore(db)
		loader := pginfra.NewQuestionLoader(pool)
		topics, questions, results, admins = store, store, store, store
		sampler = loader
		if redisClient != nil {
			answers = redisinfra.NewAnswerKeyRepository(redisClient, loader, answersTTL)
		} else {
			answers = memory.NewAnswerKeyRepository(loader, answersTTL)
		}
	} else {
		log.Printf("postgres not configured; using in-memory store")
		mem := memory.NewStore()
		topics, questions, results, admins = mem, mem, mem, mem
		sampler = mem
		answers = memory.NewAnswerKeyRepository(mem, answersTTL)
	}

	var sessions app.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	secret := cfg.Admin.JWTSecret
	if secret == "" {
		// Tokens die with the process; fine for development only.
		secret = uuid.NewString()
		log.Printf("warning: admin.jwt_secret not configured, using an ephemeral secret")
	}

	broadcaster := app.NewLeaderboardBroadcaster()
	quiz := app.NewQuizService(topics, sampler, answers, results, sessions, broadcaster).
		WithQuizRules(cfg.Quiz.QuestionsPerAttempt, cfg.Quiz.PointsPerQuestion)
	admin := app.NewAdminService(admins, topics, questions, answers, results, quiz, []byte(secret), tokenTTL)

	handler := transport.NewHandler(quiz, admin)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting topic quiz service on :%s", finalPort)
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
