package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stone-age-io/hostaudit/internal/collectors"
)

// textWriter keeps the first write error so the renderer can print freely
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(indent int, format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, strings.Repeat("  ", indent)+format+"\n", args...)
}

// Text writes the report as indented sections for a terminal
func Text(w io.Writer, report *collectors.Report) error {
	t := &textWriter{w: w}

	t.line(0, "Host Report")
	t.line(1, "Run ID: %s", report.RunID)
	t.line(1, "Captured at: %s", report.CapturedAt.Format(time.RFC3339))

	t.line(0, "")
	t.line(0, "System Information:")
	sys := report.System
	t.line(1, "System: %s", sys.System)
	t.line(1, "Node name: %s", sys.NodeName)
	t.line(1, "Release: %s", sys.Release)
	t.line(1, "Version: %s", sys.Version)
	t.line(1, "Machine: %s", sys.Machine)
	t.line(1, "Processor: %s", sys.Processor)

	t.line(0, "")
	t.line(0, "CPU:")
	t.line(1, "Physical cores: %d", report.CPU.PhysicalCores)
	t.line(1, "Total cores: %d", report.CPU.TotalCores)
	t.line(1, "Usage: %.2f%%", report.CPU.UsagePercent)

	t.line(0, "")
	t.line(0, "Memory:")
	t.line(1, "Total: %.2f GB", report.Memory.TotalGB)
	t.line(1, "Used: %.2f GB", report.Memory.UsedGB)
	t.line(1, "Free: %.2f GB", report.Memory.FreeGB)

	t.line(0, "")
	writeNetwork(t, report.Network)

	t.line(0, "")
	t.line(0, "Disks:")
	if len(report.Disks) == 0 {
		t.line(1, "none")
	}
	for _, device := range sortedKeys(report.Disks) {
		d := report.Disks[device]
		t.line(1, "%s:", device)
		t.line(2, "Mountpoint: %s", d.Mountpoint)
		t.line(2, "Filesystem: %s", d.Fstype)
		t.line(2, "Total: %.2f GB", d.TotalGB)
		t.line(2, "Used: %.2f GB", d.UsedGB)
		t.line(2, "Free: %.2f GB", d.FreeGB)
	}

	t.line(0, "")
	t.line(0, "Installed Software (%d):", len(report.Software))
	for _, name := range report.Software {
		t.line(1, "- %s", name)
	}

	t.line(0, "")
	t.line(0, "Security Checks:")
	t.line(1, "Suspicious account present: %t", report.Security.SuspiciousAccountPresent)
	t.line(1, "Password policy visible: %s", report.Security.PasswordPolicyVisible)

	if len(report.Permissions) > 0 {
		t.line(0, "")
		t.line(0, "Permissions:")
		for _, p := range report.Permissions {
			t.line(1, "%s", permissionSentence(p))
		}
	}

	if len(report.Degraded) > 0 {
		t.line(0, "")
		t.line(0, "Degraded probes: %s", strings.Join(report.Degraded, ", "))
	}

	return t.err
}

func writeNetwork(t *textWriter, n collectors.NetworkSection) {
	t.line(0, "Network:")

	t.line(1, "Interfaces:")
	if len(n.Interfaces) == 0 {
		t.line(2, "none")
	}
	for _, iface := range n.Interfaces {
		t.line(2, "%s:", iface.Name)
		for _, a := range iface.Addresses {
			t.line(3, "%s", addressLine(a))
		}
	}

	if len(n.OpenPorts) == 0 {
		t.line(1, "Open ports: none")
	} else {
		ports := make([]string, len(n.OpenPorts))
		for i, p := range n.OpenPorts {
			ports[i] = strconv.Itoa(p)
		}
		t.line(1, "Open ports: %s", strings.Join(ports, ", "))
	}

	t.line(1, "Connected devices:")
	if len(n.ConnectedDevices) == 0 {
		t.line(2, "none")
	}
	for _, d := range n.ConnectedDevices {
		t.line(2, "%-16s %-18s %s", d.IP, d.MAC, d.Type)
	}
}

func addressLine(a collectors.InterfaceAddress) string {
	var b strings.Builder
	b.WriteString(string(a.Family))
	b.WriteString(" ")
	b.WriteString(a.Address)
	if a.Netmask != "" {
		b.WriteString(" netmask ")
		b.WriteString(a.Netmask)
	}
	if a.Broadcast != "" {
		b.WriteString(" broadcast ")
		b.WriteString(a.Broadcast)
	}
	return b.String()
}

func permissionSentence(p collectors.PermissionCheck) string {
	if p.Readable {
		return fmt.Sprintf("The %s '%s' can be accessed based on permissions.", p.Kind, p.Path)
	}
	return fmt.Sprintf("The %s '%s' cannot be accessed.", p.Kind, p.Path)
}

func sortedKeys(m map[string]collectors.DiskVolume) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
