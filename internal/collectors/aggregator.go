// Package collectors gathers host facts and merges them into a Report.
// Probes run sequentially in a fixed order; a failed probe contributes a
// default value and a warning, never an error.
package collectors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stone-age-io/hostaudit/internal/tooling"
	"go.uber.org/zap"
)

// ToolAdapter runs platform utilities on behalf of the tool-backed probes
type ToolAdapter interface {
	Lines(ctx context.Context, cmd tooling.Command) ([]string, bool)
	Text(ctx context.Context, cmd tooling.Command) (string, error)
}

// Options selects sources and heuristics for a collection run
type Options struct {
	CPUSampleInterval time.Duration

	PortsSource    string // config.PortsSourceNetstat or config.PortsSourceNative
	DevicesSource  string // config.DevicesSourceARP or config.DevicesSourceProcfs
	ARPHeaderLines int

	Connections   tooling.Command
	Neighbors     tooling.Command
	Packages      tooling.Command
	AccountPolicy tooling.Command

	SuspiciousAccounts    []string
	PasswordPolicyMarkers []string

	Files   []string
	Folders []string
}

// Collector produces Reports. It keeps no state between runs beyond the
// degraded-probe list of the run in progress.
type Collector struct {
	logger      *zap.Logger
	opts        Options
	tools       ToolAdapter
	platform    Platform
	permissions *PermissionProbe

	procARPPath string
	now         func() time.Time
	newRunID    func() string

	degraded []string
}

// NewCollector creates a collector
func NewCollector(logger *zap.Logger, opts Options, tools ToolAdapter, platform Platform) *Collector {
	return &Collector{
		logger:      logger,
		opts:        opts,
		tools:       tools,
		platform:    platform,
		permissions: NewPermissionProbe(logger),
		procARPPath: "/proc/net/arp",
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
}

// CollectReport runs every probe once and returns the assembled report
func (c *Collector) CollectReport(ctx context.Context) *Report {
	c.degraded = []string{}
	start := c.now()

	report := &Report{RunID: c.newRunID()}
	c.logger.Info("Collecting host report", zap.String("run_id", report.RunID))

	report.Permissions = c.permissions.checkPaths(c.opts.Files, c.opts.Folders)

	identity := c.collectIdentity(ctx)
	c.record(ProbeIdentity, identity.Degraded, identity.Err)
	report.System = identity.Value

	cpu := c.collectCPU(ctx)
	c.record(ProbeCPU, cpu.Degraded, cpu.Err)
	report.CPU = cpu.Value

	memory := c.collectMemory(ctx)
	c.record(ProbeMemory, memory.Degraded, memory.Err)
	report.Memory = memory.Value

	report.Network = c.collectNetwork(ctx)

	disks := c.collectDisks(ctx)
	c.record(ProbeDisks, disks.Degraded, disks.Err)
	report.Disks = disks.Value

	software := c.collectSoftware(ctx)
	c.record(ProbeSoftware, software.Degraded, software.Err)
	report.Software = software.Value

	report.Security = c.collectSecurity(ctx)

	report.Degraded = c.degraded
	c.degraded = nil
	report.CapturedAt = c.now().UTC()

	c.logger.Info("Host report collected",
		zap.String("run_id", report.RunID),
		zap.Duration("duration", report.CapturedAt.Sub(start.UTC())),
		zap.Strings("degraded", report.Degraded))

	return report
}

func (c *Collector) record(probe string, isDegraded bool, cause error) {
	if !isDegraded {
		return
	}
	c.degraded = append(c.degraded, probe)
	c.logger.Debug("Probe degraded to default value",
		zap.String("probe", probe),
		zap.Error(cause))
}
