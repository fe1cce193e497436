package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mfgplan/allocator/internal/collaborator"
	"github.com/mfgplan/allocator/internal/config"
	"github.com/mfgplan/allocator/internal/engine"
	"github.com/mfgplan/allocator/internal/optimizer"
	"github.com/mfgplan/allocator/internal/server"
	"github.com/mfgplan/allocator/pkg/output"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}
		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	configLocation := flag.String("config", "config.yaml", "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, markdown, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serve := flag.String("serve", "", "run the HTTP API on this address instead of a one-shot run (e.g. :8080)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *serve != "" {
		logger.Info("starting HTTP server",
			zap.String("op", "main"),
			zap.String("address", *serve),
		)
		if err := http.ListenAndServe(*serve, server.NewHandler(logger, server.DefaultMaxBodySize, "dev")); err != nil {
			logger.Fatal("server stopped",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		return
	}

	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = output.FormatPretty
	}
	if err := output.ValidateFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	warnings, err := conf.ValidateConfiguration()
	if err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	machines, err := conf.MachineSet()
	if err != nil {
		logger.Fatal("failed to resolve machines",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	oracle := optimizer.New(logger, conf.OptimizerMode(), conf.Optimizer.Granularity)
	proposer, reviewers := buildCollaborators(conf, oracle, logger)

	// Stop the run between iterations on SIGINT/SIGTERM and finalize with
	// whatever history has accumulated.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx, engine.Problem{Machines: machines, Demand: conf.Demand}, engine.Options{
		Logger:          logger,
		Policy:          conf.Policy(),
		Proposer:        proposer,
		Panel:           collaborator.NewPanel(logger, reviewers, conf.ProposalTimeout()),
		Oracle:          oracle,
		ProposalTimeout: conf.ProposalTimeout(),
	})
	if err != nil {
		logger.Fatal("optimization run failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	switch outputFormat {
	case output.FormatPretty:
		output.PrettyFormat(machines, conf.Demand, result)
	case output.FormatMarkdown:
		fmt.Print(output.MarkdownReport(machines, conf.Demand, result, time.Now()))
	case output.FormatCSV:
		output.CsvFormat(machines, result)
	}
}

// buildCollaborators wires the configured proposal and review collaborators:
// OpenAI-backed agents when requested and a key is present, otherwise the
// deterministic local strategy collaborators.
func buildCollaborators(conf *config.Configuration, oracle *optimizer.Oracle, logger *zap.Logger) (collaborator.Proposer, []collaborator.Reviewer) {
	roles := conf.Collaborators.Reviewers
	if len(roles) == 0 {
		roles = []string{"optimization strategist"}
	}

	if conf.Collaborators.Provider == "openai" {
		keyEnv := conf.Collaborators.APIKeyEnv
		if keyEnv == "" {
			keyEnv = "OPENAI_API_KEY"
		}
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			logger.Warn("openai collaborators requested but no API key found, using local strategy collaborators",
				zap.String("op", "main"),
				zap.String("env", keyEnv),
			)
		} else {
			reviewers := make([]collaborator.Reviewer, 0, len(roles))
			for _, role := range roles {
				reviewers = append(reviewers, collaborator.NewLLMReviewer(apiKey, conf.Collaborators.Model, role, logger))
			}
			return collaborator.NewLLMProposer(apiKey, conf.Collaborators.Model, logger), reviewers
		}
	}

	reviewers := make([]collaborator.Reviewer, 0, len(roles))
	for _, role := range roles {
		reviewers = append(reviewers, collaborator.NewScriptReviewer(role, oracle))
	}
	return collaborator.StrategyProposer{}, reviewers
}
