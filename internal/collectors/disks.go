package collectors

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stone-age-io/hostaudit/internal/utils"
	"go.uber.org/zap"
)

// pseudoFilesystems never describe real storage
var pseudoFilesystems = map[string]bool{
	"devfs":    true,
	"devtmpfs": true,
	"tmpfs":    true,
	"squashfs": true,
	"overlay":  true,
	"proc":     true,
	"sysfs":    true,
	"cgroup":   true,
	"cgroup2":  true,
}

func (c *Collector) collectDisks(ctx context.Context) Outcome[map[string]DiskVolume] {
	volumes := make(map[string]DiskVolume)

	partitions, err := c.platform.Partitions(ctx)
	if err != nil {
		c.logger.Warn("Failed to list disk partitions", zap.Error(err))
		return degraded(volumes, err)
	}

	for _, p := range partitions {
		if pseudoFilesystems[p.Fstype] {
			continue
		}
		// A device mounted twice is reported at its first mount point
		if _, seen := volumes[p.Device]; seen {
			continue
		}

		usage, err := c.platform.DiskUsage(ctx, p.Mountpoint)
		if err != nil {
			// Empty optical drives and stale network mounts end up here
			c.logger.Debug("Could not get disk usage",
				zap.String("device", p.Device),
				zap.String("mountpoint", p.Mountpoint),
				zap.Error(err))
			continue
		}

		volumes[p.Device] = newDiskVolume(p, usage)
	}

	return succeeded(volumes)
}

func newDiskVolume(p disk.PartitionStat, usage *disk.UsageStat) DiskVolume {
	return DiskVolume{
		Device:     p.Device,
		Mountpoint: p.Mountpoint,
		Fstype:     p.Fstype,
		TotalGB:    utils.BytesToGB(usage.Total),
		UsedGB:     utils.BytesToGB(usage.Used),
		FreeGB:     utils.BytesToGB(usage.Free),
	}
}
