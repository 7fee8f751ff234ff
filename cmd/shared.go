package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cypherqa/internal/agent"
	"cypherqa/internal/config"
	"cypherqa/internal/graph"
	"cypherqa/internal/llm"
	"cypherqa/internal/store"
)

// App holds the process-wide handles shared by every question: one graph
// connection, one generator, one store and the session built on them.
type App struct {
	DataDir string
	Config  *config.Config
	Session *agent.Session
	Graph   *graph.Client
	Store   *store.DB
	Logger  *slog.Logger
}

// InitOptions tune InitApp for a single command.
type InitOptions struct {
	// RefreshSchema ignores the cached schema on first use.
	RefreshSchema bool
	// SkipGenerator connects without a text-generation service, for
	// commands that only run hand-written Cypher.
	SkipGenerator bool
}

// These variables will be set by main package
var (
	LaunchTUI   func(app *App) error
	StartServer func(app *App, port int) error
	SetupLogger func(dataDir string) (*slog.Logger, error)
)

// HandleError prints error and exits
func HandleError(err error, message string) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}

// InitApp loads configuration and connects every collaborator. The returned
// cleanup closes them.
func InitApp(ctx context.Context, dataDir string, opts InitOptions) (*App, func(), error) {
	logger := slog.Default()
	if SetupLogger != nil {
		l, err := SetupLogger(dataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		} else {
			logger = l
		}
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, nil, err
	}
	if err := validateConfig(cfg, opts); err != nil {
		logger.Error("Configuration incomplete", "error", err)
		return nil, nil, err
	}

	client, err := graph.Connect(ctx, graph.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
		MaxRows:  cfg.Neo4j.MaxRows,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to connect to Neo4j", "error", err, "uri", cfg.Neo4j.URI)
		return nil, nil, err
	}

	db, err := store.Open(dataDir, logger)
	if err != nil {
		_ = client.Close(ctx)
		return nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("Failed to close Neo4j driver", "error", err)
		}
	}

	schema := store.NewCachedSchema(db, client, store.SchemaCacheKey(cfg.Neo4j.URI, cfg.Neo4j.Database), cfg.Schema.CacheTTL, opts.RefreshSchema)

	gen := llm.Generator(unavailableGenerator{})
	if !opts.SkipGenerator {
		gen, err = llm.New(ctx, cfg.LLM.Provider,
			llm.WithAPIKey(cfg.LLM.APIKey),
			llm.WithModel(cfg.LLM.Model),
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithLogger(logger),
		)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	session, err := agent.NewSession(
		agent.WithGenerator(gen),
		agent.WithExecutor(client),
		agent.WithSchemaSource(schema),
		agent.WithRecorder(db),
		agent.WithLogger(logger),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("Session initialized",
		"neo4j_uri", cfg.Neo4j.URI,
		"database", cfg.Neo4j.Database,
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"schema_ttl", cfg.Schema.CacheTTL)

	return &App{
		DataDir: dataDir,
		Config:  cfg,
		Session: session,
		Graph:   client,
		Store:   db,
		Logger:  logger,
	}, cleanup, nil
}

func validateConfig(cfg *config.Config, opts InitOptions) error {
	err := cfg.Validate()
	if err == nil || !opts.SkipGenerator {
		return err
	}
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		return err
	}
	var remaining []string
	for _, v := range missing.Variables {
		if v != "ANTHROPIC_API_KEY" {
			remaining = append(remaining, v)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	return &config.MissingError{Variables: remaining}
}

// unavailableGenerator stands in when a command runs without a model.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	return "", &llm.GenerationError{Provider: "none", Err: fmt.Errorf("no text-generation service configured for this command")}
}
