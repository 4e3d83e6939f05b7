// Command hostaudit collects a one-shot diagnostic report of the local host
// and prints it as text, JSON, YAML or Prometheus metrics.
//
// Usage:
//
//	hostaudit [flags]
//
// Configuration comes from an optional YAML file (--config), HOSTAUDIT_*
// environment variables and flags, in increasing precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/stone-age-io/hostaudit/internal/agent"
	"github.com/stone-age-io/hostaudit/internal/config"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "hostaudit: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion, _ := flags.GetBool("version"); showVersion {
		fmt.Fprintf(stdout, "hostaudit %s\n", version)
		return nil
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return err
	}

	a, err := agent.New(cfg, version)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

// newFlagSet declares the command-line flags; each one except config and
// version overrides the matching configuration key
func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("hostaudit", pflag.ContinueOnError)

	flags.StringP("config", "c", "", "Path to a YAML config file (default: platform config path if present)")
	flags.Bool("version", false, "Print the version and exit")

	flags.StringP("format", "f", config.FormatText, "Output format: text, json, yaml, prometheus")
	flags.StringP("output", "o", "", "Write the report to this file instead of stdout")
	flags.Bool("pretty", true, "Indent JSON output")
	flags.StringArray("file", nil, "File to check for read access (repeatable)")
	flags.StringArray("folder", nil, "Folder to check for read access (repeatable)")

	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write JSON logs to this file, with rotation")

	flags.Duration("cpu-interval", time.Second, "CPU usage sample interval")
	flags.Duration("tool-timeout", 30*time.Second, "Timeout for each platform tool invocation")
	flags.String("ports-source", config.PortsSourceNetstat, "Open port source: netstat or native")

	flags.Bool("publish", false, "Publish the JSON report to NATS")

	return flags
}
