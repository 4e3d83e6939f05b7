package collectors

import (
	"context"
	"fmt"
	"os"

	"github.com/stone-age-io/hostaudit/internal/config"
	"go.uber.org/zap"
)

// collectNetwork builds the network section; each sub-probe degrades on its own
func (c *Collector) collectNetwork(ctx context.Context) NetworkSection {
	interfaces := c.collectInterfaces(ctx)
	c.record(ProbeInterfaces, interfaces.Degraded, interfaces.Err)

	ports := c.collectOpenPorts(ctx)
	c.record(ProbeOpenPorts, ports.Degraded, ports.Err)

	devices := c.collectConnectedDevices(ctx)
	c.record(ProbeConnectedDevices, devices.Degraded, devices.Err)

	return NetworkSection{
		Interfaces:       interfaces.Value,
		OpenPorts:        ports.Value,
		ConnectedDevices: devices.Value,
	}
}

func (c *Collector) collectInterfaces(ctx context.Context) Outcome[[]NetworkInterface] {
	stats, err := c.platform.Interfaces(ctx)
	if err != nil {
		c.logger.Warn("Failed to enumerate network interfaces", zap.Error(err))
		return degraded([]NetworkInterface{}, err)
	}

	interfaces := make([]NetworkInterface, 0, len(stats))
	for _, iface := range stats {
		interfaces = append(interfaces, NetworkInterface{
			Name:      iface.Name,
			Addresses: interfaceAddresses(iface),
		})
	}
	return succeeded(interfaces)
}

func (c *Collector) collectOpenPorts(ctx context.Context) Outcome[[]int] {
	if c.opts.PortsSource == config.PortsSourceNative {
		conns, err := c.platform.Connections(ctx, "tcp")
		if err != nil {
			c.logger.Warn("Failed to list TCP connections", zap.Error(err))
			return degraded([]int{}, err)
		}
		return succeeded(listeningPorts(conns))
	}

	lines, ok := c.tools.Lines(ctx, c.opts.Connections)
	if !ok {
		return degraded([]int{}, fmt.Errorf("%s unavailable", c.opts.Connections))
	}
	return succeeded(parseListeningPorts(lines))
}

func (c *Collector) collectConnectedDevices(ctx context.Context) Outcome[[]ConnectedDevice] {
	if c.opts.DevicesSource == config.DevicesSourceProcfs {
		return c.readProcARP()
	}

	lines, ok := c.tools.Lines(ctx, c.opts.Neighbors)
	if !ok {
		return degraded([]ConnectedDevice{}, fmt.Errorf("%s unavailable", c.opts.Neighbors))
	}
	return succeeded(parseNeighborTable(lines, c.opts.ARPHeaderLines))
}

func (c *Collector) readProcARP() Outcome[[]ConnectedDevice] {
	f, err := os.Open(c.procARPPath)
	if err != nil {
		c.logger.Warn("ARP table not available", zap.String("path", c.procARPPath), zap.Error(err))
		return degraded([]ConnectedDevice{}, err)
	}
	defer f.Close()

	devices, err := parseProcARP(f)
	if err != nil {
		// Keep whatever parsed before the read error
		c.logger.Warn("Error reading ARP table", zap.String("path", c.procARPPath), zap.Error(err))
		return degraded(devices, err)
	}
	return succeeded(devices)
}
