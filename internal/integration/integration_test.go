package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/domain"
	infrapg "topic-quiz-service/internal/infra/postgres"
	pgmigrations "topic-quiz-service/internal/infra/postgres/migrations"
	infraredis "topic-quiz-service/internal/infra/redis"
)

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBunDB(t, ctx, pgURL)
	defer db.Close()
	store := infrapg.NewStore(db)

	topic, err := store.CreateTopic(ctx, "geography")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err := store.CreateQuestion(ctx, domain.Question{
			TopicID:       topic.ID,
			Question:      fmt.Sprintf("question %d", i),
			Option1:       "a",
			Option2:       "b",
			Option3:       "c",
			Option4:       "d",
			CorrectOption: domain.OptionOne,
		})
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	loader := infrapg.NewQuestionLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	answers := infraredis.NewAnswerKeyRepository(redisClient, loader, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(store, loader, answers, store, sessions, app.NewLeaderboardBroadcaster())

	aliceToken, err := service.RegisterPlayer(ctx, "Alice")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bobToken, err := service.RegisterPlayer(ctx, "Bob")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	aliceQuestions, err := service.StartAttempt(ctx, aliceToken, topic.ID)
	if err != nil {
		t.Fatalf("alice start: %v", err)
	}
	if len(aliceQuestions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(aliceQuestions))
	}

	// Alice answers everything correctly.
	submitted := make(map[int64]string, len(aliceQuestions))
	for _, q := range aliceQuestions {
		submitted[q.ID] = domain.OptionOne
	}
	result, lb, err := service.SubmitAnswers(ctx, aliceToken, topic.ID, submitted)
	if err != nil {
		t.Fatalf("alice submit: %v", err)
	}
	if result.Score != 6 {
		t.Fatalf("expected score 6, got %d", result.Score)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Rank != 1 {
		t.Fatalf("expected alice at rank 1, got %+v", lb.Entries)
	}

	// Replaying the same attempt must fail: it was consumed on submit.
	if _, _, err := service.SubmitAnswers(ctx, aliceToken, topic.ID, submitted); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt to be single use, got %v", err)
	}

	// Bob gets one question right.
	bobQuestions, err := service.StartAttempt(ctx, bobToken, topic.ID)
	if err != nil {
		t.Fatalf("bob start: %v", err)
	}
	bobAnswers := make(map[int64]string, len(bobQuestions))
	for i, q := range bobQuestions {
		if i == 0 {
			bobAnswers[q.ID] = domain.OptionOne
		} else {
			bobAnswers[q.ID] = domain.OptionFour
		}
	}
	result, lb, err = service.SubmitAnswers(ctx, bobToken, topic.ID, bobAnswers)
	if err != nil {
		t.Fatalf("bob submit: %v", err)
	}
	if result.Score != 2 {
		t.Fatalf("expected score 2, got %d", result.Score)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", lb.Entries)
	}
	if lb.Entries[0].PlayerName != "Alice" || lb.Entries[0].Rank != 1 {
		t.Fatalf("expected alice first, got %+v", lb.Entries)
	}
	if lb.Entries[1].PlayerName != "Bob" || lb.Entries[1].Rank != 2 {
		t.Fatalf("expected bob second, got %+v", lb.Entries)
	}
}

func TestAnswerKeyCacheAcrossMutations(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBunDB(t, ctx, pgURL)
	defer db.Close()
	store := infrapg.NewStore(db)

	topic, err := store.CreateTopic(ctx, "history")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	q, err := store.CreateQuestion(ctx, domain.Question{
		TopicID:       topic.ID,
		Question:      "first",
		Option1:       "a",
		Option2:       "b",
		Option3:       "c",
		Option4:       "d",
		CorrectOption: domain.OptionTwo,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	answers := infraredis.NewAnswerKeyRepository(redisClient, infrapg.NewQuestionLoader(pool), 5*time.Minute)

	key, err := answers.CorrectOptions(ctx, topic.ID)
	if err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if key[q.ID] != domain.OptionTwo {
		t.Fatalf("expected %s, got %s", domain.OptionTwo, key[q.ID])
	}

	if err := store.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if err := answers.Invalidate(ctx, topic.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	key, err = answers.CorrectOptions(ctx, topic.ID)
	if err != nil {
		t.Fatalf("correct options after delete: %v", err)
	}
	if len(key) != 0 {
		t.Fatalf("expected empty key after delete, got %v", key)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func openBunDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
