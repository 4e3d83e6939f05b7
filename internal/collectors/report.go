package collectors

import (
	"encoding/json"
	"time"
)

// Report is a complete snapshot of one host audit.
// Every field is always populated; failed probes leave empty collections,
// zero values or PolicyUnavailable, never a missing key.
type Report struct {
	RunID       string                `json:"run_id" yaml:"run_id"`
	System      SystemIdentity        `json:"system" yaml:"system"`
	CPU         CPUSummary            `json:"cpu" yaml:"cpu"`
	Memory      MemorySummary         `json:"memory" yaml:"memory"`
	Network     NetworkSection        `json:"network" yaml:"network"`
	Disks       map[string]DiskVolume `json:"disks" yaml:"disks"` // Keyed by device
	Software    []string              `json:"software" yaml:"software"`
	Security    SecurityFindings      `json:"security" yaml:"security"`
	Permissions []PermissionCheck     `json:"permissions" yaml:"permissions"`
	Degraded    []string              `json:"degraded" yaml:"degraded"` // Probes that fell back to a default
	CapturedAt  time.Time             `json:"captured_at" yaml:"captured_at"`
}

// SystemIdentity describes the platform
type SystemIdentity struct {
	System    string `json:"system" yaml:"system"`       // "Linux", "Windows", "Darwin"
	NodeName  string `json:"node_name" yaml:"node_name"` // Host name
	Release   string `json:"release" yaml:"release"`     // Kernel version
	Version   string `json:"version" yaml:"version"`     // Platform and platform version
	Machine   string `json:"machine" yaml:"machine"`     // Kernel architecture
	Processor string `json:"processor" yaml:"processor"` // CPU model name
}

// CPUSummary holds core counts and a sampled utilisation
type CPUSummary struct {
	PhysicalCores int     `json:"physical_cores" yaml:"physical_cores"`
	TotalCores    int     `json:"total_cores" yaml:"total_cores"`
	UsagePercent  float64 `json:"usage_percent" yaml:"usage_percent"` // Averaged over the sample interval
}

// MemorySummary in GB. Used + Free equals Total within rounding.
type MemorySummary struct {
	TotalGB float64 `json:"total_gb" yaml:"total_gb"`
	UsedGB  float64 `json:"used_gb" yaml:"used_gb"`
	FreeGB  float64 `json:"free_gb" yaml:"free_gb"` // Available to new workloads
}

// NetworkSection groups interface, port and neighbour facts
type NetworkSection struct {
	Interfaces       []NetworkInterface `json:"interfaces" yaml:"interfaces"` // Discovery order
	OpenPorts        []int              `json:"open_ports" yaml:"open_ports"`
	ConnectedDevices []ConnectedDevice  `json:"connected_devices" yaml:"connected_devices"`
}

// AddressFamily of an interface address
type AddressFamily string

const (
	FamilyIPv4 AddressFamily = "AF_INET"
	FamilyIPv6 AddressFamily = "AF_INET6"
	FamilyLink AddressFamily = "AF_LINK"
)

// NetworkInterface is one OS interface with its addresses in OS order
type NetworkInterface struct {
	Name      string             `json:"name" yaml:"name"`
	Addresses []InterfaceAddress `json:"addresses" yaml:"addresses"`
}

// InterfaceAddress is one address bound to an interface
type InterfaceAddress struct {
	Family    AddressFamily `json:"family" yaml:"family"`
	Address   string        `json:"address" yaml:"address"`
	Netmask   string        `json:"netmask,omitempty" yaml:"netmask,omitempty"`
	Broadcast string        `json:"broadcast,omitempty" yaml:"broadcast,omitempty"`
}

// ConnectedDevice is a neighbour table entry
type ConnectedDevice struct {
	IP   string `json:"ip" yaml:"ip"`
	MAC  string `json:"mac" yaml:"mac"`
	Type string `json:"type" yaml:"type"` // "dynamic", "static"
}

// DiskVolume is usage for one device
type DiskVolume struct {
	Device     string  `json:"device" yaml:"device"`
	Mountpoint string  `json:"mountpoint" yaml:"mountpoint"`
	Fstype     string  `json:"fstype" yaml:"fstype"`
	TotalGB    float64 `json:"total_gb" yaml:"total_gb"`
	UsedGB     float64 `json:"used_gb" yaml:"used_gb"`
	FreeGB     float64 `json:"free_gb" yaml:"free_gb"`
}

// SecurityFindings holds the heuristic results
type SecurityFindings struct {
	SuspiciousAccountPresent bool         `json:"suspicious_account_present" yaml:"suspicious_account_present"`
	PasswordPolicyVisible    PolicyStatus `json:"password_policy_visible" yaml:"password_policy_visible"`
}

// PolicyStatus is a tri-state: the policy tool may fail, which is
// different from running and finding no policy.
type PolicyStatus int

const (
	// PolicyUnavailable means the account-policy tool could not be run
	PolicyUnavailable PolicyStatus = iota
	// PolicyAbsent means the tool ran but the policy fields were missing
	PolicyAbsent
	// PolicyVisible means every policy marker was found
	PolicyVisible
)

// Known reports whether the status is a strict boolean result
func (p PolicyStatus) Known() bool {
	return p == PolicyAbsent || p == PolicyVisible
}

func (p PolicyStatus) String() string {
	switch p {
	case PolicyVisible:
		return "true"
	case PolicyAbsent:
		return "false"
	default:
		return "unavailable"
	}
}

// value is the serialised form: true, false or "unavailable"
func (p PolicyStatus) value() interface{} {
	if p.Known() {
		return p == PolicyVisible
	}
	return "unavailable"
}

func (p PolicyStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value())
}

func (p PolicyStatus) MarshalYAML() (interface{}, error) {
	return p.value(), nil
}

// Permission check kinds
const (
	KindFile   = "file"
	KindFolder = "folder"
)

// PermissionCheck is the read accessibility of one audited path
type PermissionCheck struct {
	Path     string `json:"path" yaml:"path"`
	Kind     string `json:"kind" yaml:"kind"`
	Readable bool   `json:"readable" yaml:"readable"`
}
