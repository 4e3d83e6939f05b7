package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stone-age-io/hostaudit/internal/collectors"
	"google.golang.org/protobuf/proto"
)

const metricPrefix = "hostaudit_"

// Prometheus writes the report in the Prometheus text exposition format,
// suitable for the node_exporter textfile collector. Every family is a gauge.
func Prometheus(w io.Writer, report *collectors.Report) error {
	for _, mf := range metricFamilies(report) {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// metricFamilies converts the report into gauge families sorted by name
func metricFamilies(r *collectors.Report) []*dto.MetricFamily {
	info := gauge("info", "Host identity, value is always 1.")
	addSample(info, 1,
		"run_id", r.RunID,
		"node_name", r.System.NodeName,
		"system", r.System.System,
		"release", r.System.Release,
		"machine", r.System.Machine)

	captured := gauge("report_timestamp_seconds", "Unix time the report was captured.")
	addSample(captured, float64(r.CapturedAt.UnixNano())/1e9)

	cores := gauge("cpu_cores", "CPU core count by kind.")
	addSample(cores, float64(r.CPU.PhysicalCores), "kind", "physical")
	addSample(cores, float64(r.CPU.TotalCores), "kind", "logical")

	usage := gauge("cpu_usage_percent", "CPU utilisation averaged over the sample interval.")
	addSample(usage, r.CPU.UsagePercent)

	memory := gauge("memory_gb", "Memory in gigabytes by state.")
	addSample(memory, r.Memory.TotalGB, "state", "total")
	addSample(memory, r.Memory.UsedGB, "state", "used")
	addSample(memory, r.Memory.FreeGB, "state", "free")

	disks := gauge("disk_gb", "Disk space in gigabytes by device and state.")
	for _, device := range sortedKeys(r.Disks) {
		d := r.Disks[device]
		addSample(disks, d.TotalGB, "device", device, "mountpoint", d.Mountpoint, "state", "total")
		addSample(disks, d.UsedGB, "device", device, "mountpoint", d.Mountpoint, "state", "used")
		addSample(disks, d.FreeGB, "device", device, "mountpoint", d.Mountpoint, "state", "free")
	}

	interfaces := gauge("network_interfaces", "Number of network interfaces.")
	addSample(interfaces, float64(len(r.Network.Interfaces)))

	openPorts := gauge("open_ports", "Number of listening TCP sockets.")
	addSample(openPorts, float64(len(r.Network.OpenPorts)))

	// The same port can listen on several addresses; count sockets per port
	sockets := gauge("listening_port_sockets", "Listening TCP sockets per port.")
	perPort := make(map[int]int)
	for _, p := range r.Network.OpenPorts {
		perPort[p]++
	}
	ports := make([]int, 0, len(perPort))
	for p := range perPort {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	for _, p := range ports {
		addSample(sockets, float64(perPort[p]), "port", strconv.Itoa(p))
	}

	devices := gauge("connected_devices", "Number of neighbour table entries.")
	addSample(devices, float64(len(r.Network.ConnectedDevices)))

	software := gauge("installed_software", "Number of installed packages.")
	addSample(software, float64(len(r.Software)))

	suspicious := gauge("suspicious_account_present", "1 if a deny-listed account exists.")
	addSample(suspicious, boolValue(r.Security.SuspiciousAccountPresent))

	policy := gauge("password_policy_visible", "1 if visible, 0 if absent, -1 if the check could not run.")
	addSample(policy, policyValue(r.Security.PasswordPolicyVisible))

	readable := gauge("path_readable", "1 if the audited path is readable by the current user.")
	for _, p := range r.Permissions {
		addSample(readable, boolValue(p.Readable), "kind", p.Kind, "path", p.Path)
	}

	degraded := gauge("probe_degraded", "1 if the probe fell back to a default value.")
	isDegraded := make(map[string]bool, len(r.Degraded))
	for _, probe := range r.Degraded {
		isDegraded[probe] = true
	}
	for _, probe := range collectors.Probes {
		addSample(degraded, boolValue(isDegraded[probe]), "probe", probe)
	}

	families := []*dto.MetricFamily{
		info, captured, cores, usage, memory, disks, interfaces, openPorts,
		sockets, devices, software, suspicious, policy, readable, degraded,
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families
}

func gauge(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(metricPrefix + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// addSample appends a gauge sample; labels are name/value pairs
func addSample(mf *dto.MetricFamily, value float64, labels ...string) {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(value)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	mf.Metric = append(mf.Metric, m)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func policyValue(p collectors.PolicyStatus) float64 {
	switch p {
	case collectors.PolicyVisible:
		return 1
	case collectors.PolicyAbsent:
		return 0
	default:
		return -1
	}
}
