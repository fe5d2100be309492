package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eyadsibai/worth-it-sub001/internal/config"
	"github.com/eyadsibai/worth-it-sub001/internal/conversion"
	"github.com/eyadsibai/worth-it-sub001/internal/waterfall"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
	"github.com/eyadsibai/worth-it-sub001/pkg/output"
	"github.com/eyadsibai/worth-it-sub001/pkg/validation"
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

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapLevel)
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

		cfg.OutputPaths = []string{loggingConfig.OutputFile}
		cfg.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return cfg.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to scenario file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	scenario, err := config.LoadScenario(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load scenario at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	logger, err := initializeLogger(scenario.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := scenario.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate the scenario and display any warnings
	warnings := scenario.Validate()
	for _, warning := range warnings {
		logger.Warn("Scenario warning: "+warning,
			zap.String("op", "main"),
		)
	}

	model, err := scenario.ToDomain()
	if err != nil {
		logger.Fatal("failed to build scenario model",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// When the scenario carries a priced round, convert the outstanding
	// instruments first so the waterfall runs over the post-round table.
	capTable := model.CapTable
	if model.Round != nil && len(model.Convertibles) > 0 {
		engine := conversion.NewEngine(logger)
		result, err := engine.Convert(capTable, model.Convertibles, *model.Round)
		if err != nil {
			logger.Fatal("failed to convert instruments",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		capTable = result.UpdatedCapTable
		logger.Info("instruments converted",
			zap.String("op", "main"),
			zap.Int("instruments", result.Summary.InstrumentsConverted),
			zap.Int64("sharesIssued", result.Summary.TotalSharesIssued),
		)
	}

	engine := waterfall.NewEngine(logger)
	result, err := engine.Sweep(context.Background(), capTable, model.Tiers, scenario.Valuations())
	if err != nil {
		logger.Fatal("failed to compute waterfall distributions",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(result)
	case constants.OutputFormatCSV:
		output.CsvFormat(result)
	}
}
