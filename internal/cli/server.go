package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-service/internal/app"
	"quiz-service/internal/config"
	"quiz-service/internal/domain"
	"quiz-service/internal/infra/memory"
	"quiz-service/internal/infra/postgres"
	rediscache "quiz-service/internal/infra/redis"
	"quiz-service/internal/logger"
	transport "quiz-service/internal/transport/http"
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
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "3000"
	}

	var (
		content app.ContentStore
		users   app.CredentialStore
		pool    *pgxpool.Pool
	)
	if cfg.Postgres.URL != "" {
		pool, err = postgres.NewPool(ctx, cfg.Postgres.URL, postgres.PoolConfig{
			MaxConns:        cfg.Postgres.MaxConns,
			MaxConnLifetime: config.TTLDuration(cfg.Postgres.MaxConnLifetime, 30*time.Minute),
		})
		if err != nil {
			return err
		}
		defer pool.Close()
		content = postgres.NewContentStore(pool)
		users = postgres.NewCredentialStore(pool)
	} else {
		seed, err := demoContent(cfg)
		if err != nil {
			return err
		}
		log.Warn("postgres not configured, serving in-memory content and users",
			zap.Int("questions", len(seed.Questions)))
		content = memory.NewContentStore(seed)
		users = memory.NewCredentialStore()
	}

	optionsTTL := config.TTLDuration(cfg.Quiz.OptionsTTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		content = rediscache.NewOptionCache(redisClient, content, optionsTTL)
	} else if pool != nil {
		content = memory.NewOptionCache(content, optionsTTL)
	}

	quiz, err := app.NewQuizService(content, app.QuizOptions{
		SetSize:             cfg.Quiz.SetSize,
		MaxMarksPerQuestion: cfg.Quiz.MaxMarksPerQuestion,
		TotalMode:           app.TotalMode(cfg.Quiz.TotalMode),
	})
	if err != nil {
		return fmt.Errorf("quiz.total_mode: %w", err)
	}
	auth, err := app.NewAuthService(users, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	requestTimeout := config.TTLDuration(cfg.Server.RequestTimeout, 5*time.Second)
	handler := transport.NewHandler(quiz, auth, log)
	wsHandler := transport.NewWSHandler(quiz, log, requestTimeout)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler, wsHandler, log, requestTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoContent loads quiz.content_path when set, otherwise a built-in sample.
func demoContent(cfg config.Config) (domain.Content, error) {
	if cfg.Quiz.ContentPath != "" {
		return memory.LoadContent(cfg.Quiz.ContentPath)
	}
	return domain.Content{
		Questions: []domain.Question{
			{ID: 1, Text: "Which keyword starts a goroutine?", CategoryID: 1},
			{ID: 2, Text: "What does a nil map panic on?", CategoryID: 1},
		},
		Options: []domain.Option{
			{ID: 1, QuestionID: 1, Text: "go", Marks: 4},
			{ID: 2, QuestionID: 1, Text: "async", Marks: 0},
			{ID: 3, QuestionID: 1, Text: "spawn", Marks: 0},
			{ID: 4, QuestionID: 2, Text: "write", Marks: 4},
			{ID: 5, QuestionID: 2, Text: "read", Marks: 1},
			{ID: 6, QuestionID: 2, Text: "len", Marks: 0},
		},
	}, nil
}
