package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"

	"github.com/campfinder-assistant/server/internal/agent/catalog"
	"github.com/campfinder-assistant/server/internal/agent/dialogue"
	"github.com/campfinder-assistant/server/internal/agent/events"
	"github.com/campfinder-assistant/server/internal/agent/graph"
	"github.com/campfinder-assistant/server/internal/agent/graph/conversations"
	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/campfinder-assistant/server/internal/agent/nlu"
	"github.com/campfinder-assistant/server/internal/agent/pipeline"
	"github.com/campfinder-assistant/server/internal/agent/reaper"
	"github.com/campfinder-assistant/server/internal/agent/recommend"
	"github.com/campfinder-assistant/server/internal/agent/repo"
	"github.com/campfinder-assistant/server/internal/core"
	"github.com/campfinder-assistant/server/internal/httpapi"
	logx "github.com/campfinder-assistant/server/pkg/logger"
	pkgpostgres "github.com/campfinder-assistant/server/pkg/postgres"
	pkgredis "github.com/campfinder-assistant/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the assistant, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Server   httpapi.Config
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider; the keyword engine is used when no key is set
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Session   model.SessionConfig
	NLU       model.NLUModelConfig
	Pipeline  model.PipelineConfig
	Recommend model.RecommendConfig
	Catalog   model.CatalogConfig
	Events    model.EventsConfig
}

type catalogs interface {
	model.AmenityCatalog
	model.ListingCatalog
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: cfg.LogLevel})
	gin.SetMode(env.GinMode())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	checks := map[string]httpapi.HealthCheck{}

	// ====================================================
	// Session store
	var store model.SessionStore
	switch cfg.Session.Store {
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			return fmt.Errorf("initialise redis client: %w", err)
		}
		defer rdb.Close()
		checks["redis"] = redisCheck(rdb)
		store = repo.NewRedisSessionStore(rdb, cfg.Session.InactivityWindow+cfg.Session.SweepInterval, cfg.Session.HistoryLimit)
		logx.Info().Msg("Connected to Redis session store")
	default:
		store = repo.NewMemorySessionStore(cfg.Session.HistoryLimit)
		logx.Info().Msg("Using in-memory session store")
	}

	// ====================================================
	// Listing catalog
	var listings catalogs
	switch cfg.Catalog.Source {
	case "memory":
		listings = catalog.NewSeededCatalog()
		logx.Info().Int("listings", len(catalog.SeedListings)).Msg("Using seeded in-memory catalog")
	default:
		db, err := cfg.Postgres.New()
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()
		checks["postgres"] = postgresCheck(db)

		pg := catalog.NewPostgresCatalog(db)
		if cfg.Catalog.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
		}
		listings = pg
		logx.Info().Msg("Connected to PostgreSQL catalog")
	}
	amenities := catalog.NewCachedAmenityCatalog(listings, cfg.Catalog.AmenityCacheTTL)

	// ====================================================
	// NLU
	// Gemini scores sentiment in the same call; the lexicon only backs the keyword engine.
	var (
		engine    model.NLUEngine
		sentiment model.SentimentAnalyzer
	)
	if cfg.APIKey != "" {
		chatModel, err := nlu.NewGeminiChatModel(ctx, nlu.ChatModelConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			NLUConfig: cfg.NLU,
		})
		if err != nil {
			return err
		}
		engine = nlu.NewEngine(chatModel, cfg.NLU)
		logx.Info().Str("model", cfg.NLU.Model).Msg("Gemini NLU engine initialised")
	} else {
		engine = nlu.NewKeywordEngine()
		sentiment = nlu.NewLexiconAnalyzer()
		logx.Warn().Msg("GEMINI_API_KEY not set, falling back to keyword NLU")
	}

	// ====================================================
	// Search events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Events)
		if err != nil {
			return err
		}
		publisher = kp
		logx.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).Msg("Publishing search events to Kafka")
	}
	defer publisher.Close()

	// ====================================================
	// Turn graph and recommendation builder
	sessions := conversations.NewSessionManager(store, cfg.Session)
	runner, err := graph.BuildTurnGraph(ctx, &graph.GraphConfig{
		Sessions: sessions,
		Pipeline: pipeline.New(pipeline.Options{
			NLU:       engine,
			Sentiment: sentiment,
			Amenities: pipeline.NewAmenityValidator(amenities),
			NLUConfig: cfg.NLU,
			Config:    cfg.Pipeline,
		}),
		Router: dialogue.NewRouter(dialogue.NewRandomPicker()),
	})
	if err != nil {
		return fmt.Errorf("build turn graph: %w", err)
	}

	recommender := recommend.NewBuilder(recommend.Options{
		Sessions:     sessions,
		Catalog:      listings,
		Publisher:    publisher,
		Config:       cfg.Recommend,
		QueryTimeout: cfg.Catalog.QueryTimeout,
	})

	r := reaper.New(store, cfg.Session)
	r.Start(ctx)
	defer r.Stop()

	// ====================================================
	// HTTP
	router := httpapi.NewRouter(cfg.Server, httpapi.NewChatHandler(runner, recommender, sessions), checks)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logx.Info().Msg("Server stopped")
	return nil
}

func redisCheck(rdb *goredis.Client) httpapi.HealthCheck {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err()
	}
}

func postgresCheck(db *sqlx.DB) httpapi.HealthCheck {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}
