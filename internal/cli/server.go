package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"metalwatch-service/internal/app"
	"metalwatch-service/internal/config"
	"metalwatch-service/internal/domain"
	kafkapub "metalwatch-service/internal/infra/kafka"
	"metalwatch-service/internal/infra/memory"
	pgstore "metalwatch-service/internal/infra/postgres"
	redisstore "metalwatch-service/internal/infra/redis"
	"metalwatch-service/internal/logging"
	transport "metalwatch-service/internal/transport/http"
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

func newLogger(cfg config.Config) *logrus.Logger {
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL, log); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
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

	loader, err := newBankLoader(ctx, cfg, pool, log)
	if err != nil {
		return err
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var banks app.QuestionBankRepository
	if redisClient != nil {
		banks = redisstore.NewBankRepository(redisClient, loader, quizTTL, log)
	} else {
		banks = memory.NewBankRepository(loader, quizTTL)
	}

	var samples app.SampleStore = memory.NewSampleStore()
	var attempts app.AttemptStore = memory.NewAttemptStore()
	switch {
	case pool != nil:
		samples = pgstore.NewSampleStore(pool)
		attempts = pgstore.NewAttemptStore(pool)
	case redisClient != nil:
		attempts = redisstore.NewAttemptStore(redisClient)
	}

	var events app.EventPublisher = app.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafkapub.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicSamples, cfg.Kafka.TopicAttempts)
		defer publisher.Close()
		events = publisher
	}

	pollution := app.NewPollutionService(samples, events, log)
	quiz := app.NewQuizService(banks, attempts, app.QuizOptions{
		BankID:           cfg.Quiz.BankID,
		LeaderboardLimit: cfg.Quiz.LeaderboardLimit,
		Events:           events,
		Logger:           log,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(pollution, quiz, log).Register(mux)
	mux.HandleFunc("GET /ws/leaderboard", transport.NewWSHandler(quiz, log).ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting metalwatch service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newBankLoader prefers a YAML bank file, then Postgres, then the built-in
// bank. Postgres is seeded with the built-in bank when it has none.
func newBankLoader(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log logrus.FieldLogger) (memory.BankLoader, error) {
	switch {
	case cfg.Quiz.BankPath != "":
		log.WithField("path", cfg.Quiz.BankPath).Info("loading question banks from file")
		return memory.NewFileBankLoader(cfg.Quiz.BankPath), nil
	case pool != nil:
		loader := pgstore.NewBankLoader(pool)
		_, err := loader.LoadBank(ctx, cfg.Quiz.BankID)
		if errors.Is(err, domain.ErrQuestionBankNotFound) {
			version, err := loader.SaveBank(ctx, defaultBank(cfg.Quiz.BankID))
			if err != nil {
				return nil, err
			}
			log.WithFields(logrus.Fields{"bank_id": cfg.Quiz.BankID, "version": version}).Info("seeded question bank")
		} else if err != nil {
			return nil, err
		}
		return loader, nil
	default:
		return memory.NewStaticBankLoader(defaultBank(cfg.Quiz.BankID)), nil
	}
}

// defaultBank is the built-in awareness quiz.
func defaultBank(id string) domain.QuestionBank {
	return domain.QuestionBank{
		ID:      id,
		Version: 1,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "What does PLI stand for?",
				Options:       []string{"Pollution Level Index", "Pollution Load Index", "Public Land Indicator"},
				CorrectOption: "Pollution Load Index",
				Category:      "indices",
			},
			{
				ID:            "q2",
				Prompt:        "Which metal is toxic from batteries?",
				Options:       []string{"Iron", "Lead", "Copper"},
				CorrectOption: "Lead",
				Category:      "metals",
			},
			{
				ID:            "q3",
				Prompt:        "PLI < 1 means:",
				Options:       []string{"Safe", "Danger", "Critical"},
				CorrectOption: "Safe",
				Category:      "indices",
			},
			{
				ID:            "q4",
				Prompt:        "Most polluted Indian city?",
				Options:       []string{"Mumbai", "Delhi", "Chennai"},
				CorrectOption: "Delhi",
				Category:      "general",
			},
			{
				ID:            "q5",
				Prompt:        "CF stands for:",
				Options:       []string{"Contamination Factor", "Clean Factor", "Chemical Formula"},
				CorrectOption: "Contamination Factor",
				Category:      "indices",
			},
		},
	}
}
