package collectors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/stone-age-io/hostaudit/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (c *Collector) collectIdentity(ctx context.Context) Outcome[SystemIdentity] {
	var errs []error
	id := SystemIdentity{}

	info, err := c.platform.HostInfo(ctx)
	if err != nil {
		c.logger.Warn("Failed to collect host info", zap.Error(err))
		errs = append(errs, err)

		// Fall back to what the Go runtime knows
		id.System = titleOS(runtime.GOOS)
		id.Machine = runtime.GOARCH
		if hostname, herr := os.Hostname(); herr == nil {
			id.NodeName = hostname
		}
	} else {
		id.System = titleOS(info.OS)
		id.NodeName = info.Hostname
		id.Release = info.KernelVersion
		id.Version = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		id.Machine = info.KernelArch
	}

	cpus, err := c.platform.CPUInfo(ctx)
	switch {
	case err != nil:
		c.logger.Warn("Failed to collect CPU model", zap.Error(err))
		errs = append(errs, err)
	case len(cpus) == 0:
		errs = append(errs, errors.New("no CPU info returned"))
	default:
		id.Processor = strings.TrimSpace(cpus[0].ModelName)
	}
	if id.Processor == "" {
		id.Processor = id.Machine
	}

	if len(errs) > 0 {
		return degraded(id, errors.Join(errs...))
	}
	return succeeded(id)
}

func titleOS(goos string) string {
	if goos == "" {
		return ""
	}
	return cases.Title(language.English).String(goos)
}

func (c *Collector) collectCPU(ctx context.Context) Outcome[CPUSummary] {
	var errs []error
	summary := CPUSummary{}

	physical, err := c.platform.CPUCounts(ctx, false)
	if err != nil {
		c.logger.Warn("Failed to count physical cores", zap.Error(err))
		errs = append(errs, err)
	} else if physical > 0 {
		summary.PhysicalCores = physical
	}

	logical, err := c.platform.CPUCounts(ctx, true)
	if err != nil || logical < 1 {
		if err == nil {
			err = fmt.Errorf("invalid logical core count %d", logical)
		}
		c.logger.Warn("Failed to count logical cores", zap.Error(err))
		errs = append(errs, err)
		logical = runtime.NumCPU()
	}
	summary.TotalCores = logical

	// Blocks for the sample interval
	percents, err := c.platform.CPUPercent(ctx, c.opts.CPUSampleInterval)
	switch {
	case err != nil:
		c.logger.Warn("Failed to sample CPU usage", zap.Error(err))
		errs = append(errs, err)
	case len(percents) == 0:
		errs = append(errs, errors.New("no CPU usage returned"))
	default:
		summary.UsagePercent = utils.Round(utils.Clamp(percents[0], 0, 100))
	}

	if len(errs) > 0 {
		return degraded(summary, errors.Join(errs...))
	}
	return succeeded(summary)
}

func (c *Collector) collectMemory(ctx context.Context) Outcome[MemorySummary] {
	vmem, err := c.platform.VirtualMemory(ctx)
	if err != nil {
		c.logger.Warn("Failed to collect memory info", zap.Error(err))
		return degraded(MemorySummary{}, err)
	}
	return succeeded(newMemorySummary(vmem.Total, vmem.Available))
}

// newMemorySummary reports available memory as free and the rest as used,
// so the three figures always add up
func newMemorySummary(total, available uint64) MemorySummary {
	if available > total {
		available = total
	}
	totalGB := utils.BytesToGB(total)
	freeGB := utils.BytesToGB(available)
	return MemorySummary{
		TotalGB: totalGB,
		UsedGB:  utils.Round(totalGB - freeGB),
		FreeGB:  freeGB,
	}
}
