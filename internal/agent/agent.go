package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stone-age-io/hostaudit/internal/collectors"
	"github.com/stone-age-io/hostaudit/internal/config"
	natsclient "github.com/stone-age-io/hostaudit/internal/nats"
	"github.com/stone-age-io/hostaudit/internal/render"
	"github.com/stone-age-io/hostaudit/internal/tooling"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Agent runs a single collection and delivers the report
type Agent struct {
	config    *config.Config
	logger    *zap.Logger
	collector *collectors.Collector
	version   string
	stdout    io.Writer
}

// New creates an agent from a loaded configuration
func New(cfg *config.Config, version string) (*Agent, error) {
	// Diagnostics go to stderr; stdout carries the report
	logger, err := initLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug("Starting hostaudit",
		zap.String("version", version),
		zap.String("format", cfg.Output.Format))

	runner := tooling.NewExecRunner(cfg.Collection.ToolTimeout)
	adapter, err := tooling.NewAdapter(runner, logger, cfg.Collection.ToolEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool adapter: %w", err)
	}

	collector := collectors.NewCollector(logger, collectorOptions(cfg), adapter, collectors.NewPlatform())

	return &Agent{
		config:    cfg,
		logger:    logger,
		collector: collector,
		version:   version,
		stdout:    os.Stdout,
	}, nil
}

// collectorOptions maps configuration onto collection options
func collectorOptions(cfg *config.Config) collectors.Options {
	return collectors.Options{
		CPUSampleInterval:     cfg.Collection.CPUSampleInterval,
		PortsSource:           cfg.Network.PortsSource,
		DevicesSource:         cfg.Network.DevicesSource,
		ARPHeaderLines:        cfg.Network.ARPHeaderLines,
		Connections:           toolCommand(cfg.Tools.Connections),
		Neighbors:             toolCommand(cfg.Tools.Neighbors),
		Packages:              toolCommand(cfg.Tools.Packages),
		AccountPolicy:         toolCommand(cfg.Tools.AccountPolicy),
		SuspiciousAccounts:    cfg.Security.SuspiciousAccounts,
		PasswordPolicyMarkers: cfg.Security.PasswordPolicyMarkers,
		Files:                 cfg.Audit.Files,
		Folders:               cfg.Audit.Folders,
	}
}

func toolCommand(t config.ToolCommand) tooling.Command {
	return tooling.Command{Name: t.Command, Args: t.Args}
}

// Run collects one report, writes it and optionally publishes it.
// Degraded probes are not errors; only output failures are.
func (a *Agent) Run(ctx context.Context) error {
	report := a.collector.CollectReport(ctx)

	if err := a.writeReport(report); err != nil {
		return err
	}

	if a.config.Output.NATS.Enabled {
		if err := a.publish(ctx, report); err != nil {
			return err
		}
	}

	return nil
}

// writeReport renders to stdout, or to output.file via a temp file and rename
// so readers such as the node_exporter textfile collector never see a partial report
func (a *Agent) writeReport(report *collectors.Report) error {
	out := a.config.Output
	if out.File == "" {
		return render.Render(a.stdout, report, out.Format, out.Pretty)
	}

	tmp, err := os.CreateTemp(filepath.Dir(out.File), ".hostaudit-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := render.Render(tmp, report, out.Format, out.Pretty); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set output file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), out.File); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}

	a.logger.Info("Report written", zap.String("file", out.File), zap.String("format", out.Format))
	return nil
}

// publish always sends JSON, whatever the local output format
func (a *Agent) publish(ctx context.Context, report *collectors.Report) error {
	var buf bytes.Buffer
	if err := render.JSON(&buf, report, false); err != nil {
		return err
	}

	publisher, err := natsclient.NewPublisher(&a.config.Output.NATS, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer publisher.Close()

	if err := publisher.PublishReport(ctx, report.System.NodeName, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	return nil
}

// Close flushes buffered log entries
func (a *Agent) Close() {
	a.logger.Sync()
}

// initLogger creates a console logger on console and, when a log file is
// configured, a JSON logger with rotation
func initLogger(cfg config.LoggingConfig, console io.Writer) (*zap.Logger, error) {
	// Parse log level
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	// Create encoder config
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(console), level),
	}

	if cfg.File != "" {
		// Setup log rotation with lumberjack
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(fileWriter), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logger, nil
}
