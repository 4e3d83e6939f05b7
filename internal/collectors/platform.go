package collectors

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// Platform is the set of direct OS queries the collectors rely on.
// The default implementation is gopsutil; tests substitute failures.
type Platform interface {
	HostInfo(ctx context.Context) (*host.InfoStat, error)
	Users(ctx context.Context) ([]host.UserStat, error)
	CPUCounts(ctx context.Context, logical bool) (int, error)
	CPUInfo(ctx context.Context) ([]cpu.InfoStat, error)
	// CPUPercent blocks for interval and returns combined utilisation
	CPUPercent(ctx context.Context, interval time.Duration) ([]float64, error)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Partitions(ctx context.Context) ([]disk.PartitionStat, error)
	DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error)
	Interfaces(ctx context.Context) (psnet.InterfaceStatList, error)
	Connections(ctx context.Context, kind string) ([]psnet.ConnectionStat, error)
}

// gopsutilPlatform queries the local OS through gopsutil
type gopsutilPlatform struct{}

// NewPlatform returns the gopsutil-backed Platform
func NewPlatform() Platform {
	return gopsutilPlatform{}
}

func (gopsutilPlatform) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (gopsutilPlatform) Users(ctx context.Context) ([]host.UserStat, error) {
	return host.UsersWithContext(ctx)
}

func (gopsutilPlatform) CPUCounts(ctx context.Context, logical bool) (int, error) {
	return cpu.CountsWithContext(ctx, logical)
}

func (gopsutilPlatform) CPUInfo(ctx context.Context) ([]cpu.InfoStat, error) {
	return cpu.InfoWithContext(ctx)
}

func (gopsutilPlatform) CPUPercent(ctx context.Context, interval time.Duration) ([]float64, error) {
	return cpu.PercentWithContext(ctx, interval, false) // false = combined
}

func (gopsutilPlatform) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (gopsutilPlatform) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, false) // false = physical only
}

func (gopsutilPlatform) DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (gopsutilPlatform) Interfaces(ctx context.Context) (psnet.InterfaceStatList, error) {
	return psnet.InterfacesWithContext(ctx)
}

func (gopsutilPlatform) Connections(ctx context.Context, kind string) ([]psnet.ConnectionStat, error) {
	return psnet.ConnectionsWithContext(ctx, kind)
}
