package collectors

// Probe names, as recorded in Report.Degraded
const (
	ProbeIdentity         = "identity"
	ProbeCPU              = "cpu"
	ProbeMemory           = "memory"
	ProbeInterfaces       = "interfaces"
	ProbeOpenPorts        = "open_ports"
	ProbeConnectedDevices = "connected_devices"
	ProbeDisks            = "disks"
	ProbeSoftware         = "software"
	ProbeAccounts         = "accounts"
	ProbePasswordPolicy   = "password_policy"
)

// Probes lists every probe name in collection order
var Probes = []string{
	ProbeIdentity,
	ProbeCPU,
	ProbeMemory,
	ProbeInterfaces,
	ProbeOpenPorts,
	ProbeConnectedDevices,
	ProbeDisks,
	ProbeSoftware,
	ProbeAccounts,
	ProbePasswordPolicy,
}

// Outcome is a probe result: either a real value, or a default standing in
// for a probe that could not run. Err carries the cause when degraded.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Err      error
}

func succeeded[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func degraded[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Value: v, Degraded: true, Err: err}
}
