package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ProCoderAkhil/mptcquiz/internal/alloc"
	"github.com/ProCoderAkhil/mptcquiz/internal/app"
	"github.com/ProCoderAkhil/mptcquiz/internal/catalog"
	"github.com/ProCoderAkhil/mptcquiz/internal/config"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
	infrafile "github.com/ProCoderAkhil/mptcquiz/internal/infra/file"
	infrapg "github.com/ProCoderAkhil/mptcquiz/internal/infra/postgres"
	infraredis "github.com/ProCoderAkhil/mptcquiz/internal/infra/redis"
	"github.com/ProCoderAkhil/mptcquiz/internal/logger"
	"github.com/ProCoderAkhil/mptcquiz/internal/store"
	transport "github.com/ProCoderAkhil/mptcquiz/internal/transport/http"
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
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

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

	var loader catalog.Loader = catalog.NewStatic(sampleQuestions())
	if cfg.Catalog.Path != "" {
		loader = catalog.NewFileLoader(cfg.Catalog.Path)
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = infrapg.NewCatalogLoader(pool)
	}
	catalogTTL := config.Duration(cfg.Catalog.TTL, 10*time.Minute)
	cat := catalog.NewCached(loader, catalogTTL)

	questions, err := cat.List(ctx)
	if err != nil {
		return err
	}

	type blobStore interface {
		store.Persister
		alloc.LedgerStore
	}
	var blobs blobStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		blobs = infraredis.NewPersister(client)
	} else {
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = "data"
		}
		blobs, err = infrafile.NewPersister(dir)
		if err != nil {
			return err
		}
	}

	adminStore, err := store.New(ctx, blobs, store.DefaultState(questions, time.Now()), store.WithLogger(log))
	if err != nil {
		return err
	}
	engine := alloc.NewEngine(cat, blobs, log)

	feedbackDelay := config.Duration(cfg.Quiz.FeedbackDelay, 1500*time.Millisecond)
	service := app.NewQuizService(adminStore, cat, engine,
		app.WithFeedbackDelay(feedbackDelay),
		app.WithLogger(log),
	)

	wsHandler := transport.NewWSHandler(service, log)
	adminHandler := transport.NewAdminHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/admin/ws", adminHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions is the fallback catalog when neither a YAML file nor
// Postgres is configured; swap in real content via config/questions.yaml.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Category: "National Symbols", Text: "Who wrote the national anthem of India?", Options: []string{"Bankim Chandra Chatterjee", "Rabindranath Tagore", "Sarojini Naidu", "Allama Iqbal"}, CorrectOption: 1},
		{ID: 2, Category: "World Geography", Text: "Which country is known as the Land of the Rising Sun?", Options: []string{"China", "Japan", "Korea", "Vietnam"}, CorrectOption: 1},
		{ID: 3, Category: "World Geography", Text: "Which is the smallest continent in the world?", Options: []string{"Europe", "Australia", "Antarctica", "South America"}, CorrectOption: 1},
		{ID: 4, Category: "Inventors", Text: "Who invented the telephone?", Options: []string{"Guglielmo Marconi", "Thomas Edison", "Alexander Graham Bell", "Nikola Tesla"}, CorrectOption: 2},
		{ID: 5, Category: "Human Body", Text: "What do humans breathe?", Options: []string{"Nitrogen", "Carbon Dioxide", "Oxygen", "Hydrogen"}, CorrectOption: 2},
		{ID: 6, Category: "Astronomy", Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, CorrectOption: 1},
		{ID: 7, Category: "History", Text: "Who is known as the Father of the Nation in India?", Options: []string{"Jawaharlal Nehru", "Subhas Chandra Bose", "Mahatma Gandhi", "Sardar Patel"}, CorrectOption: 2},
		{ID: 8, Category: "Science", Text: "What is the chemical symbol for water?", Options: []string{"CO2", "H2O", "O2", "NaCl"}, CorrectOption: 1},
	}
}
