package collectors

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stone-age-io/hostaudit/internal/config"
	"github.com/stone-age-io/hostaudit/internal/tooling"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

// fakeTools serves canned tool output keyed by command name.
// Commands without an entry fail as if the tool were missing.
type fakeTools struct {
	lines map[string][]string
	text  map[string]string
	calls []string
}

func (f *fakeTools) Lines(ctx context.Context, cmd tooling.Command) ([]string, bool) {
	f.calls = append(f.calls, cmd.String())
	lines, ok := f.lines[cmd.Name]
	if !ok {
		return []string{}, false
	}
	return lines, true
}

func (f *fakeTools) Text(ctx context.Context, cmd tooling.Command) (string, error) {
	f.calls = append(f.calls, cmd.String())
	text, ok := f.text[cmd.Name]
	if !ok {
		return "", &tooling.ToolError{Tool: cmd.Name, Kind: tooling.ErrToolNotFound, ExitCode: -1}
	}
	return text, nil
}

// fakePlatform returns fixed host facts; fail makes every query error
type fakePlatform struct {
	fail bool

	info       host.InfoStat
	users      []host.UserStat
	physical   int
	logical    int
	cpus       []cpu.InfoStat
	percent    float64
	vmem       mem.VirtualMemoryStat
	partitions []disk.PartitionStat
	usage      map[string]disk.UsageStat
	interfaces psnet.InterfaceStatList
	conns      []psnet.ConnectionStat

	sampledFor time.Duration
}

func (f *fakePlatform) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	if f.fail {
		return nil, errInjected
	}
	info := f.info
	return &info, nil
}

func (f *fakePlatform) Users(ctx context.Context) ([]host.UserStat, error) {
	if f.fail {
		return nil, errInjected
	}
	return f.users, nil
}

func (f *fakePlatform) CPUCounts(ctx context.Context, logical bool) (int, error) {
	if f.fail {
		return 0, errInjected
	}
	if logical {
		return f.logical, nil
	}
	return f.physical, nil
}

func (f *fakePlatform) CPUInfo(ctx context.Context) ([]cpu.InfoStat, error) {
	if f.fail {
		return nil, errInjected
	}
	return f.cpus, nil
}

func (f *fakePlatform) CPUPercent(ctx context.Context, interval time.Duration) ([]float64, error) {
	f.sampledFor = interval
	if f.fail {
		return nil, errInjected
	}
	return []float64{f.percent}, nil
}

func (f *fakePlatform) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	if f.fail {
		return nil, errInjected
	}
	vmem := f.vmem
	return &vmem, nil
}

func (f *fakePlatform) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	if f.fail {
		return nil, errInjected
	}
	return f.partitions, nil
}

func (f *fakePlatform) DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error) {
	if f.fail {
		return nil, errInjected
	}
	u, ok := f.usage[path]
	if !ok {
		return nil, errors.New("no such mount")
	}
	return &u, nil
}

func (f *fakePlatform) Interfaces(ctx context.Context) (psnet.InterfaceStatList, error) {
	if f.fail {
		return nil, errInjected
	}
	return f.interfaces, nil
}

func (f *fakePlatform) Connections(ctx context.Context, kind string) ([]psnet.ConnectionStat, error) {
	if f.fail {
		return nil, errInjected
	}
	return f.conns, nil
}

const gb = 1 << 30

// healthyPlatform describes a small Windows workstation
func healthyPlatform() *fakePlatform {
	return &fakePlatform{
		info: host.InfoStat{
			Hostname:        "WS-042",
			OS:              "windows",
			Platform:        "Microsoft Windows 10 Pro",
			PlatformVersion: "10.0.19045 Build 19045",
			KernelVersion:   "10.0.19045",
			KernelArch:      "x86_64",
		},
		users:    []host.UserStat{{User: "alice"}, {User: "Admin"}},
		physical: 4,
		logical:  8,
		cpus:     []cpu.InfoStat{{ModelName: "Intel(R) Core(TM) i7-6600U CPU @ 2.60GHz"}},
		percent:  12.345,
		vmem:     mem.VirtualMemoryStat{Total: 16 * gb, Available: 6 * gb},
		partitions: []disk.PartitionStat{
			{Device: "C:", Mountpoint: "C:", Fstype: "NTFS"},
			{Device: "D:", Mountpoint: "D:", Fstype: "NTFS"},
			{Device: "E:", Mountpoint: "E:", Fstype: "CDFS"}, // empty drive, no usage
		},
		usage: map[string]disk.UsageStat{
			"C:": {Total: 256 * gb, Used: 200 * gb, Free: 56 * gb},
			"D:": {Total: 1024 * gb, Used: 24 * gb, Free: 1000 * gb},
		},
		interfaces: psnet.InterfaceStatList{
			{
				Name:         "Ethernet",
				HardwareAddr: "00:1a:2b:3c:4d:5e",
				Flags:        []string{"up", "broadcast", "multicast"},
				Addrs: psnet.InterfaceAddrList{
					{Addr: "192.168.1.42/24"},
					{Addr: "fe80::1c2d:3e4f:5a6b:7c8d/64"},
				},
			},
			{
				Name:  "Loopback Pseudo-Interface 1",
				Flags: []string{"up", "loopback"},
				Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}},
			},
		},
		conns: []psnet.ConnectionStat{
			{Status: "LISTEN", Laddr: psnet.Addr{IP: "0.0.0.0", Port: 135}},
			{Status: "ESTABLISHED", Laddr: psnet.Addr{IP: "192.168.1.42", Port: 50123}},
		},
	}
}

const (
	netstatOutput = "Active Connections\n\n  Proto  Local Address          Foreign Address        State\n" +
		"x TCP 0.0.0.0:445 LISTENING\n" +
		"x TCP 127.0.0.1:8080 LISTENING\n" +
		"x TCP 192.168.1.42:50123 ESTABLISHED\n"

	arpOutput = "\nInterface: 192.168.1.42 --- 0xb\n  Internet Address      Physical Address      Type\n" +
		"  192.168.1.1           aa:bb:cc:dd:ee:ff     dynamic\n" +
		"  192.168.1.255         ff-ff-ff-ff-ff-ff     static\n"

	wmicOutput = "Name  \r\nMicrosoft Edge  \r\n7-Zip 23.01 (x64)\r\n\r\n"

	netAccountsOutput = "Force user logoff how long after time expires?:       Never\n" +
		"Minimum password age (days):                          0\n" +
		"Minimum password length:                              8\n" +
		"Minimum password age:                                 1\n"
)

func split(text string) []string {
	lines := []string{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// healthyTools serves Windows-style output for every tool
func healthyTools() *fakeTools {
	return &fakeTools{
		lines: map[string][]string{
			"netstat": split(netstatOutput),
			"arp":     split(arpOutput),
			"wmic":    split(wmicOutput),
		},
		text: map[string]string{
			"net": netAccountsOutput,
		},
	}
}

func testOptions() Options {
	return Options{
		CPUSampleInterval:  10 * time.Millisecond,
		PortsSource:        config.PortsSourceNetstat,
		DevicesSource:      config.DevicesSourceARP,
		ARPHeaderLines:     3,
		Connections:        tooling.Command{Name: "netstat", Args: []string{"-an"}},
		Neighbors:          tooling.Command{Name: "arp", Args: []string{"-a"}},
		Packages:           tooling.Command{Name: "wmic", Args: []string{"product", "get", "name"}},
		AccountPolicy:      tooling.Command{Name: "net", Args: []string{"accounts"}},
		SuspiciousAccounts: []string{"admin", "testuser"},
		PasswordPolicyMarkers: []string{
			"Minimum password length:",
			"Minimum password age:",
		},
	}
}

func newTestCollector(opts Options, tools ToolAdapter, platform Platform) *Collector {
	c := NewCollector(zap.NewNop(), opts, tools, platform)
	c.newRunID = func() string { return "run-1" }
	return c
}
