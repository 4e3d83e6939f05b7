package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stone-age-io/hostaudit/internal/config"
	"github.com/stone-age-io/hostaudit/internal/tooling"
)

// testConfig loads defaults with fast sampling and tools that never exist,
// so a run touches only direct OS queries
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	cfg.Logging.Level = "error"
	cfg.Collection.CPUSampleInterval = 10 * time.Millisecond
	missing := config.ToolCommand{Command: "hostaudit-test-missing-tool"}
	cfg.Tools.Connections = missing
	cfg.Tools.Neighbors = missing
	cfg.Tools.Packages = missing
	cfg.Tools.AccountPolicy = missing
	return cfg
}

func TestCollectorOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Connections = config.ToolCommand{Command: "netstat", Args: []string{"-an"}}
	cfg.Audit.Files = []string{"/etc/hosts"}
	cfg.Audit.Folders = []string{"/var/log"}

	opts := collectorOptions(cfg)

	if want := (tooling.Command{Name: "netstat", Args: []string{"-an"}}); !reflect.DeepEqual(opts.Connections, want) {
		t.Errorf("Connections = %+v, want %+v", opts.Connections, want)
	}
	if opts.CPUSampleInterval != 10*time.Millisecond {
		t.Errorf("CPUSampleInterval = %v", opts.CPUSampleInterval)
	}
	if opts.ARPHeaderLines != 3 {
		t.Errorf("ARPHeaderLines = %d, want 3", opts.ARPHeaderLines)
	}
	if !reflect.DeepEqual(opts.Files, cfg.Audit.Files) || !reflect.DeepEqual(opts.Folders, cfg.Audit.Folders) {
		t.Errorf("Files = %v, Folders = %v", opts.Files, opts.Folders)
	}
	if !reflect.DeepEqual(opts.SuspiciousAccounts, []string{"admin", "testuser"}) {
		t.Errorf("SuspiciousAccounts = %v", opts.SuspiciousAccounts)
	}
}

func TestInitLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "hostaudit.log")
	var console bytes.Buffer

	logger, err := initLogger(config.LoggingConfig{
		Level:      "info",
		File:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
	}, &console)
	if err != nil {
		t.Fatalf("initLogger() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible")
	logger.Sync()

	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), "visible") {
		t.Errorf("console output = %q", console.String())
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.Split(data, []byte("\n"))[0], &entry); err != nil {
		t.Fatalf("log file line is not JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "visible" {
		t.Errorf("msg = %v, want visible", entry["msg"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("log entry has no timestamp")
	}
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	if _, err := initLogger(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("initLogger() error = nil, want invalid level")
	}
}

func TestRunToStdout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Format = config.FormatPrometheus

	a, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	var out bytes.Buffer
	a.stdout = &out

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"hostaudit_info{", "hostaudit_memory_gb{state=\"total\"}", "hostaudit_probe_degraded{probe=\"software\"} 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Output.Format = config.FormatJSON
	cfg.Output.File = filepath.Join(dir, "report.json")
	cfg.Audit.Folders = []string{dir}

	a, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	var out bytes.Buffer
	a.stdout = &out

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout written with output.file set: %q", out.String())
	}

	data, err := os.ReadFile(cfg.Output.File)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if report["software"] == nil {
		t.Error("software missing from report")
	}
	perms := report["permissions"].([]interface{})
	if len(perms) != 1 || perms[0].(map[string]interface{})["readable"] != true {
		t.Errorf("permissions = %v, want temp dir readable", perms)
	}

	// Only the report is left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want 1", len(entries))
	}
}

func TestRunPublishFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Format = config.FormatJSON
	cfg.Output.NATS.Enabled = true
	cfg.Output.NATS.URLs = []string{"nats://127.0.0.1:1"}
	cfg.Output.NATS.Timeout = 200 * time.Millisecond

	a, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	var out bytes.Buffer
	a.stdout = &out

	err = a.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to connect to NATS") {
		t.Errorf("Run() error = %v, want NATS connect failure", err)
	}
	// The local report is written before publishing
	if out.Len() == 0 {
		t.Error("report not written before publish failure")
	}
}
