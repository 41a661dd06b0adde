package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/db"
	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/logger"
	"github.com/jonathan/ats-optimizer/internal/server"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	Long: `Serves a thin HTTP dashboard over the optimizer: start runs, stream
progress, browse run history, and download optimized resumes. Run history
endpoints require a PostgreSQL database.`,
	RunE: runServe,
}

var (
	servePort        int
	serveConfigPath  string
	serveDatabaseURL string
	serveUseBrowser  bool
	serveVerbose     bool
	serveJSONLogs    bool
)

func init() {
	serveCommand.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCommand.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to config.yaml")
	serveCommand.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL connection URL for run history (optional, defaults to DATABASE_URL)")
	serveCommand.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use a headless browser for JavaScript-rendered job postings (requires Chrome)")
	serveCommand.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed debug information")
	serveCommand.Flags().BoolVar(&serveJSONLogs, "json-logs", false, "Emit structured JSON logs")

	rootCmd.AddCommand(serveCommand)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd, serveConfigPath, "", serveDatabaseURL,
		serveUseBrowser, serveVerbose, serveJSONLogs)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.JSONLogs, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	client, err := llm.NewGeminiClient(ctx, &llm.Config{
		ParsingModel:   cfg.LLM.ParsingModel,
		RewriteModel:   cfg.LLM.RewriteModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
	}, cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close() //nolint:errcheck

	// Run history is optional; the dashboard degrades to run-only mode.
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("database unavailable, run history disabled", zap.Error(err))
			database = nil
		}
	}

	srv, err := server.New(server.Options{
		Port:     servePort,
		Config:   cfg,
		Logger:   log,
		Client:   client,
		Database: database,
	})
	if err != nil {
		return err
	}

	return srv.Start()
}
