package config

import (
	"runtime"
)

// PlatformDefaults holds platform-specific default values
type PlatformDefaults struct {
	ConfigPath    string
	Connections   ToolCommand
	Neighbors     ToolCommand
	Packages      ToolCommand
	AccountPolicy ToolCommand
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS
func GetPlatformDefaults() PlatformDefaults {
	return platformDefaults(runtime.GOOS)
}

func platformDefaults(goos string) PlatformDefaults {
	switch goos {
	case "windows":
		return PlatformDefaults{
			ConfigPath:    `C:\ProgramData\HostAudit\config.yaml`,
			Connections:   ToolCommand{Command: "netstat", Args: []string{"-an"}},
			Neighbors:     ToolCommand{Command: "arp", Args: []string{"-a"}},
			Packages:      ToolCommand{Command: "wmic", Args: []string{"product", "get", "name"}},
			AccountPolicy: ToolCommand{Command: "net", Args: []string{"accounts"}},
		}
	case "linux":
		return PlatformDefaults{
			ConfigPath:  "/etc/hostaudit/config.yaml",
			Connections: ToolCommand{Command: "netstat", Args: []string{"-an"}},
			Neighbors:   ToolCommand{Command: "arp", Args: []string{"-a"}},
			// First line is the "Listing..." banner
			Packages:      ToolCommand{Command: "apt", Args: []string{"list", "--installed"}},
			AccountPolicy: ToolCommand{Command: "net", Args: []string{"accounts"}},
		}
	default:
		// Unknown platforms get the Windows tool set; missing tools degrade to empty
		return PlatformDefaults{
			ConfigPath:    "/etc/hostaudit/config.yaml",
			Connections:   ToolCommand{Command: "netstat", Args: []string{"-an"}},
			Neighbors:     ToolCommand{Command: "arp", Args: []string{"-a"}},
			Packages:      ToolCommand{Command: "wmic", Args: []string{"product", "get", "name"}},
			AccountPolicy: ToolCommand{Command: "net", Args: []string{"accounts"}},
		}
	}
}

// GetDefaultConfigPath returns the platform-specific default config path
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}

// defaultSetter is the subset of *viper.Viper used to register defaults
type defaultSetter interface {
	SetDefault(key string, value interface{})
}

// applyPlatformDefaults registers the tool commands for the current platform
func applyPlatformDefaults(v defaultSetter, defaults PlatformDefaults) {
	setTool := func(key string, cmd ToolCommand) {
		v.SetDefault("tools."+key+".command", cmd.Command)
		v.SetDefault("tools."+key+".args", cmd.Args)
	}

	setTool("connections", defaults.Connections)
	setTool("neighbors", defaults.Neighbors)
	setTool("packages", defaults.Packages)
	setTool("account_policy", defaults.AccountPolicy)
}
