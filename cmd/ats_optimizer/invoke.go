package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/logger"
	"github.com/jonathan/ats-optimizer/internal/pipeline"
)

var invokeCommand = &cobra.Command{
	Use:   "invoke <job_source> <resume>",
	Short: "Run the full optimization pipeline for one job posting",
	Long: `Collects the candidate profile, parses the job posting, analyzes every
resume bullet against it, rewrites the weak ones using profile evidence, and
writes the optimized resume plus outreach material to the output directory.

The job source may be a URL, a path to a text file, or the posting text itself.
The resume argument is the path to the LaTeX resume to optimize.`,
	Args: cobra.ExactArgs(2),
	RunE: runInvoke,
}

var (
	invokeConfigPath  string
	invokeOutputDir   string
	invokeDatabaseURL string
	invokeUseBrowser  bool
	invokeVerbose     bool
	invokeJSONLogs    bool
	invokeNoCommit    bool
)

func init() {
	invokeCommand.Flags().StringVarP(&invokeConfigPath, "config", "c", "", "Path to config.yaml (values can be overridden by other flags)")
	invokeCommand.Flags().StringVarP(&invokeOutputDir, "output", "o", "", "Directory for run artifacts")
	invokeCommand.Flags().StringVar(&invokeDatabaseURL, "db-url", "", "PostgreSQL connection URL for run history (optional, defaults to DATABASE_URL)")
	invokeCommand.Flags().BoolVar(&invokeUseBrowser, "use-browser", false, "Use a headless browser for JavaScript-rendered job postings (requires Chrome)")
	invokeCommand.Flags().BoolVarP(&invokeVerbose, "verbose", "v", false, "Print detailed debug information")
	invokeCommand.Flags().BoolVar(&invokeJSONLogs, "json-logs", false, "Emit structured JSON logs")
	invokeCommand.Flags().BoolVar(&invokeNoCommit, "no-commit", false, "Skip committing the optimized resume to the configured repository")

	rootCmd.AddCommand(invokeCommand)
}

// loadConfig merges the config file, environment, and explicitly set flags.
func loadConfig(cmd *cobra.Command, configPath, outputDir, databaseURL string, useBrowser, verbose, jsonLogs bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("output") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = databaseURL
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = useBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.JSONLogs = jsonLogs
	}

	return cfg, nil
}

func runInvoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobSource, resumePath := args[0], args[1]

	cfg, err := loadConfig(cmd, invokeConfigPath, invokeOutputDir, invokeDatabaseURL,
		invokeUseBrowser, invokeVerbose, invokeJSONLogs)
	if err != nil {
		return err
	}
	if invokeNoCommit {
		cfg.GitHub.Token = ""
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

	p, err := pipeline.New(cfg, log, client)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, jobSource, resumePath)
	if err != nil {
		// A push failure still leaves the optimized resume on disk.
		if result != nil && result.OutputDir != "" {
			fmt.Fprintf(os.Stderr, "Run finished with errors; local artifacts kept in %s\n", result.OutputDir)
		}
		return err
	}

	log.Info("run complete",
		zap.Float64("match_score", result.Analysis.MatchScore),
		zap.String("output_dir", result.OutputDir),
		zap.Bool("committed", result.Committed))

	fmt.Printf("\nOptimized resume: %s\n", result.OptimizedTexPath)
	fmt.Printf("Match score: %.1f/100\n", result.Analysis.MatchScore)
	if result.Committed {
		fmt.Printf("Committed to %s/%s\n", cfg.GitHub.RepoOwner, cfg.GitHub.RepoName)
	}
	return nil
}
