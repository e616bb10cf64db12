package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"decaquiz-service/internal/app"
	"decaquiz-service/internal/config"
	"decaquiz-service/internal/extract"
	"decaquiz-service/internal/infra/drive"
	"decaquiz-service/internal/infra/memory"
	"decaquiz-service/internal/infra/postgres"
	redisstore "decaquiz-service/internal/infra/redis"
	transport "decaquiz-service/internal/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newStartCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

type backends struct {
	quizzes  app.QuizStore
	sessions app.SessionRepository
	sweepers []app.ExpirySweeper
	limiter  transport.RateLimiter
	close    func()
}

func runServer(ctx context.Context, opts *globalOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := opts.port
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b := buildBackends(cfg, logger)
	defer b.close()

	serviceOpts := []app.Option{app.WithTTL(config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))}
	if cfg.Quiz.CodeAttempts != nil {
		serviceOpts = append(serviceOpts, app.WithCodeAttempts(*cfg.Quiz.CodeAttempts))
	}
	service := app.NewQuizService(b.quizzes, b.sessions, serviceOpts...)

	maxBytes := cfg.MaxImportBytes()
	importClient := &http.Client{Timeout: cfg.ImportTimeout()}
	handler := transport.NewHandler(
		service,
		extract.New(cfg.MaxQuestions()),
		drive.NewFetcher(importClient, cfg.Import.DriveDownloadURL, maxBytes),
		maxBytes,
	)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Handler:     handler,
			Logger:      logger,
			BasePath:    cfg.BasePath(),
			JoinLimiter: b.limiter,
		}),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, config.DefaultReadTimeout),
		WriteTimeout: cfg.WriteTimeout(),
	}

	sweepCtx, stopSweepers := context.WithCancel(config.ContextWithLogger(ctx, logrus.NewEntry(logger)))
	defer stopSweepers()
	interval := config.TTLDuration(cfg.Postgres.SweepInterval, time.Minute)
	for _, s := range b.sweepers {
		go app.RunSweeper(sweepCtx, s, interval)
	}

	go func() {
		logger.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackends picks the stores: Postgres when a URL is configured (with a Redis
// or in-memory quiz cache in front), otherwise Redis, otherwise memory.
func buildBackends(cfg config.Config, logger *logrus.Logger) backends {
	b := backends{close: func() {}}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		window := config.TTLDuration(cfg.RateLimit.JoinWindow, time.Minute)
		b.limiter = redisstore.NewRateLimiter(redisClient, "rl:join", cfg.JoinLimit(), window)
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	switch {
	case cfg.Postgres.URL != "":
		conn := postgres.NewConnector(cfg.Postgres.URL)
		store := postgres.NewStore(conn)
		b.sessions = store
		b.sweepers = append(b.sweepers, store)
		if redisClient != nil {
			b.quizzes = redisstore.NewQuizCache(redisClient, store, cacheTTL)
		} else {
			cache := memory.NewQuizCache(store, cacheTTL)
			b.quizzes = cache
			b.sweepers = append(b.sweepers, cache)
		}
		b.close = conn.Close
		logger.Info("using postgres stores")
	case redisClient != nil:
		b.quizzes = redisstore.NewQuizStore(redisClient)
		b.sessions = redisstore.NewSessionStore(redisClient)
		logger.Info("using redis stores")
	default:
		quizzes := memory.NewQuizStore()
		sessions := memory.NewSessionStore()
		b.quizzes = quizzes
		b.sessions = sessions
		b.sweepers = append(b.sweepers, quizzes, sessions)
		logger.Info("using in-memory stores")
	}

	if redisClient != nil {
		prev := b.close
		b.close = func() {
			prev()
			_ = redisClient.Close()
		}
	}
	return b
}
