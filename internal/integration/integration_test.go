package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"decaquiz-service/internal/app"
	"decaquiz-service/internal/domain"
	"decaquiz-service/internal/infra/postgres"
	infraredis "decaquiz-service/internal/infra/redis"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestQuizLifecycleOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	group, err := postgres.Migrate(ctx, pgURL)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if group.IsZero() {
		t.Fatalf("expected the initial migration to be applied")
	}

	conn := postgres.NewConnector(pgURL)
	defer conn.Close()
	store := postgres.NewStore(conn)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	quizzes := infraredis.NewQuizCache(redisClient, store, 5*time.Minute)
	service := app.NewQuizService(quizzes, store)

	quiz, err := service.CreateQuiz(ctx, "Arithmetic", []any{
		map[string]any{"question": "2+2?", "options": []any{"3", "4"}, "correctIndex": float64(1)},
		map[string]any{"question": "3+3?", "options": []any{"6", "7"}, "correctIndex": float64(0)},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	fetched, err := service.JoinQuiz(ctx, strings.ToLower(quiz.RoomCode))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if fetched.ID != quiz.ID || fetched.Questions[0].Text != "2+2?" || fetched.Questions[0].CorrectIndex != 1 {
		t.Fatalf("round trip changed the quiz: %+v", fetched)
	}

	for i := 0; i < 2; i++ {
		if _, err := service.RecordProgress(ctx, quiz.RoomCode, "alice", []any{float64(1)}, "#123456"); err != nil {
			t.Fatalf("progress: %v", err)
		}
	}
	if _, err := service.RecordProgress(ctx, quiz.RoomCode, "bob", []any{float64(0), float64(0)}, ""); err != nil {
		t.Fatalf("progress bob: %v", err)
	}
	if _, err := service.FinalizeSubmission(ctx, quiz.RoomCode, "alice", []any{float64(1), float64(0)}, "#123456"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	progress, err := store.ListProgress(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(progress) != 1 || progress[0].Nickname != "bob" {
		t.Fatalf("expected only bob's progress to remain, got %+v", progress)
	}

	lb, err := service.GetLeaderboard(ctx, quiz.RoomCode)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].Nickname != "alice" || lb.Entries[0].Score != 2 || !lb.Entries[0].Finalized {
		t.Fatalf("expected alice's submission to lead, got %+v", lb.Entries)
	}

	if err := store.CreateQuiz(ctx, domain.Quiz{
		ID:        "duplicate",
		Title:     "Dup",
		RoomCode:  quiz.RoomCode,
		Questions: quiz.Questions,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}); !errors.Is(err, domain.ErrRoomCodeTaken) {
		t.Fatalf("expected room code conflict, got %v", err)
	}

	removed, err := store.DeleteExpired(ctx, quiz.ExpiresAt.Add(time.Second))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed < 3 {
		t.Fatalf("expected quiz, progress and submission rows swept, got %d", removed)
	}
	if _, err := store.GetQuizByCode(ctx, quiz.RoomCode); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected swept quiz to be gone, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
