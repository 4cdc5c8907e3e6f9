package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"quiz-service/internal/app"
	"quiz-service/internal/domain"
	"quiz-service/internal/infra/postgres"
	infraredis "quiz-service/internal/infra/redis"
)

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedContent(t, ctx, pgURL, sampleContent())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	content := infraredis.NewOptionCache(redisClient, postgres.NewContentStore(pool), 5*time.Minute)
	service, err := app.NewQuizService(content, app.QuizOptions{})
	if err != nil {
		t.Fatalf("quiz service: %v", err)
	}

	set, err := service.GetQuestionSet(ctx, "1")
	if err != nil {
		t.Fatalf("question set: %v", err)
	}
	if len(set) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(set))
	}
	for _, q := range set {
		if len(q.Options) != 4 {
			t.Fatalf("question %d: expected 4 options, got %d", q.ID, len(q.Options))
		}
	}

	few, err := service.GetQuestionSet(ctx, "2")
	if err != nil || len(few) != 2 {
		t.Fatalf("expected 2 questions in category 2, got %d (%v)", len(few), err)
	}
	none, err := service.GetQuestionSet(ctx, "not-a-category")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty set, got %d (%v)", len(none), err)
	}

	result, err := service.ScoreSubmission(ctx, []domain.Answer{
		{QuestionID: 1, SelectedOptionID: 103},
		{QuestionID: 2, SelectedOptionID: 204},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.Score != 7 || result.Total != 8 || result.Percentage != "87.50" {
		t.Fatalf("expected 7/8 at 87.50, got %+v", result)
	}
}

func TestSignupUniqueUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	seedContent(t, ctx, pgURL, domain.Content{})

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	auth, err := app.NewAuthService(postgres.NewCredentialStore(pool), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := auth.Signup(ctx, "Alice", "alice@example.com", "s3cret")
			if errors.Is(err, domain.ErrEmailTaken) {
				mu.Lock()
				taken++
				mu.Unlock()
			} else if err != nil {
				t.Errorf("signup: %v", err)
			}
		}()
	}
	wg.Wait()
	if taken != 7 {
		t.Fatalf("expected 7 conflicts, got %d", taken)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = $1`, "alice@example.com").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one user row, got %d", count)
	}

	user, err := auth.Login(ctx, "alice@example.com", "s3cret")
	if err != nil || user.Email != "alice@example.com" {
		t.Fatalf("login: %+v %v", user, err)
	}
	if _, err := auth.Login(ctx, "alice@example.com", "nope"); !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected incorrect password, got %v", err)
	}

	if _, err := pool.Exec(ctx, `INSERT INTO users (fullname, email, password) VALUES ('Legacy', 'legacy@example.com', NULL)`); err != nil {
		t.Fatalf("insert legacy: %v", err)
	}
	if _, err := auth.Login(ctx, "legacy@example.com", "x"); !errors.Is(err, domain.ErrMissingPasswordHash) {
		t.Fatalf("expected missing hash, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

func seedContent(t *testing.T, ctx context.Context, dsn string, content domain.Content) {
	t.Helper()
	db := postgres.OpenBun(dsn)
	defer db.Close()

	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.NewSeeder(db).Seed(ctx, content); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// sampleContent has 12 questions in category 1 and 2 in category 2, each with
// options id*100+1..4 worth 1..4 marks.
func sampleContent() domain.Content {
	var content domain.Content
	add := func(id, category int64) {
		content.Questions = append(content.Questions, domain.Question{ID: id, Text: fmt.Sprintf("question %d", id), CategoryID: category})
		for marks := 1; marks <= 4; marks++ {
			content.Options = append(content.Options, domain.Option{
				ID:         id*100 + int64(marks),
				QuestionID: id,
				Text:       fmt.Sprintf("option %d", marks),
				Marks:      marks,
			})
		}
	}
	for id := int64(1); id <= 12; id++ {
		add(id, 1)
	}
	add(13, 2)
	add(14, 2)
	return content
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
