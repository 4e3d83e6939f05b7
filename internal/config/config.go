package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full hostaudit configuration
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Collection CollectionConfig `mapstructure:"collection"`
	Network    NetworkConfig    `mapstructure:"network"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Security   SecurityConfig   `mapstructure:"security"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Output     OutputConfig     `mapstructure:"output"`
}

// LoggingConfig controls diagnostics. An empty File disables the rotated JSON log.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// CollectionConfig bounds the blocking parts of a run
type CollectionConfig struct {
	CPUSampleInterval time.Duration `mapstructure:"cpu_sample_interval"`
	ToolTimeout       time.Duration `mapstructure:"tool_timeout"`
	// ToolEncoding is the IANA name of the code page platform tools print in
	// (e.g. "IBM437", "IBM850", "GBK"). Empty means UTF-8.
	ToolEncoding string `mapstructure:"tool_encoding"`
}

// Sources for the network sub-probes
const (
	PortsSourceNetstat  = "netstat"
	PortsSourceNative   = "native"
	DevicesSourceARP    = "arp"
	DevicesSourceProcfs = "procfs"
)

// NetworkConfig selects where open ports and neighbours come from
type NetworkConfig struct {
	PortsSource    string `mapstructure:"ports_source"`
	DevicesSource  string `mapstructure:"devices_source"`
	ARPHeaderLines int    `mapstructure:"arp_header_lines"`
}

// ToolCommand is a platform utility and its fixed argument list
type ToolCommand struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// String renders the command line for logs
func (t ToolCommand) String() string {
	return strings.TrimSpace(t.Command + " " + strings.Join(t.Args, " "))
}

// ToolsConfig names the utility used for each tool-backed probe
type ToolsConfig struct {
	Connections   ToolCommand `mapstructure:"connections"`
	Neighbors     ToolCommand `mapstructure:"neighbors"`
	Packages      ToolCommand `mapstructure:"packages"`
	AccountPolicy ToolCommand `mapstructure:"account_policy"`
}

// SecurityConfig holds the heuristic inputs
type SecurityConfig struct {
	SuspiciousAccounts    []string `mapstructure:"suspicious_accounts"`
	PasswordPolicyMarkers []string `mapstructure:"password_policy_markers"`
}

// AuditConfig lists paths whose read accessibility is reported
type AuditConfig struct {
	Files   []string `mapstructure:"files"`
	Folders []string `mapstructure:"folders"`
}

// Output formats
const (
	FormatText       = "text"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatPrometheus = "prometheus"
)

// OutputConfig controls rendering and delivery. An empty File means stdout.
type OutputConfig struct {
	Format string     `mapstructure:"format"`
	File   string     `mapstructure:"file"`
	Pretty bool       `mapstructure:"pretty"`
	NATS   NATSConfig `mapstructure:"nats"`
}

// NATSConfig configures the optional report publish
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URLs          []string      `mapstructure:"urls"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	JetStream     bool          `mapstructure:"jetstream"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Auth          AuthConfig    `mapstructure:"auth"`
	TLS           TLSConfig     `mapstructure:"tls"`
}

// AuthConfig selects NATS authentication: none, creds, token or userpass
type AuthConfig struct {
	Type      string `mapstructure:"type"`
	CredsFile string `mapstructure:"creds_file"`
	Token     string `mapstructure:"token"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// TLSConfig for the NATS connection
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// Load reads configuration from defaults, an optional file, HOSTAUDIT_*
// environment variables and the given flag set, in increasing precedence.
// An empty path falls back to the platform default path if that file exists.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HOSTAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if path == "" {
		if _, err := os.Stat(GetDefaultConfigPath()); err == nil {
			path = GetDefaultConfigPath()
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// flagKeys maps CLI flag names to config keys
var flagKeys = map[string]string{
	"log-level":    "logging.level",
	"log-file":     "logging.file",
	"format":       "output.format",
	"output":       "output.file",
	"pretty":       "output.pretty",
	"file":         "audit.files",
	"folder":       "audit.folders",
	"cpu-interval": "collection.cpu_sample_interval",
	"tool-timeout": "collection.tool_timeout",
	"ports-source": "network.ports_source",
	"publish":      "output.nats.enabled",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("collection.cpu_sample_interval", time.Second)
	v.SetDefault("collection.tool_timeout", 30*time.Second)
	v.SetDefault("collection.tool_encoding", "")

	v.SetDefault("network.ports_source", PortsSourceNetstat)
	v.SetDefault("network.devices_source", DevicesSourceARP)
	v.SetDefault("network.arp_header_lines", 3)

	v.SetDefault("security.suspicious_accounts", []string{"admin", "testuser"})
	v.SetDefault("security.password_policy_markers", []string{
		"Minimum password length:",
		"Minimum password age:",
	})

	v.SetDefault("audit.files", []string{})
	v.SetDefault("audit.folders", []string{})

	v.SetDefault("output.format", FormatText)
	v.SetDefault("output.file", "")
	v.SetDefault("output.pretty", true)

	v.SetDefault("output.nats.enabled", false)
	v.SetDefault("output.nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("output.nats.subject_prefix", "hostaudit")
	v.SetDefault("output.nats.jetstream", false)
	v.SetDefault("output.nats.timeout", 10*time.Second)
	v.SetDefault("output.nats.auth.type", "none")

	applyPlatformDefaults(v, GetPlatformDefaults())
}

var (
	subjectTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	validLogLevels      = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

func validate(cfg *Config) error {
	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", cfg.Logging.Level)
	}
	if cfg.Logging.File != "" && cfg.Logging.MaxSizeMB <= 0 {
		return errors.New("logging.max_size_mb must be positive when logging.file is set")
	}

	if cfg.Collection.CPUSampleInterval <= 0 {
		return errors.New("collection.cpu_sample_interval must be positive")
	}
	if cfg.Collection.CPUSampleInterval > time.Minute {
		return errors.New("collection.cpu_sample_interval cannot exceed 1m")
	}
	if cfg.Collection.ToolTimeout < time.Second {
		return errors.New("collection.tool_timeout must be at least 1s")
	}
	if cfg.Collection.ToolTimeout > 10*time.Minute {
		return errors.New("collection.tool_timeout cannot exceed 10m")
	}

	switch cfg.Network.PortsSource {
	case PortsSourceNetstat, PortsSourceNative:
	default:
		return fmt.Errorf("network.ports_source must be %q or %q (got %q)", PortsSourceNetstat, PortsSourceNative, cfg.Network.PortsSource)
	}
	switch cfg.Network.DevicesSource {
	case DevicesSourceARP, DevicesSourceProcfs:
	default:
		return fmt.Errorf("network.devices_source must be %q or %q (got %q)", DevicesSourceARP, DevicesSourceProcfs, cfg.Network.DevicesSource)
	}
	if cfg.Network.ARPHeaderLines < 0 {
		return errors.New("network.arp_header_lines cannot be negative")
	}

	tools := map[string]ToolCommand{
		"connections":    cfg.Tools.Connections,
		"neighbors":      cfg.Tools.Neighbors,
		"packages":       cfg.Tools.Packages,
		"account_policy": cfg.Tools.AccountPolicy,
	}
	for name, tool := range tools {
		if strings.TrimSpace(tool.Command) == "" {
			return fmt.Errorf("tools.%s.command is required", name)
		}
	}

	if len(cfg.Security.PasswordPolicyMarkers) == 0 {
		return errors.New("security.password_policy_markers must not be empty")
	}

	switch cfg.Output.Format {
	case FormatText, FormatJSON, FormatYAML, FormatPrometheus:
	default:
		return fmt.Errorf("output.format must be one of text, json, yaml, prometheus (got %q)", cfg.Output.Format)
	}

	if cfg.Output.NATS.Enabled {
		if err := validateNATS(&cfg.Output.NATS); err != nil {
			return err
		}
	}

	return nil
}

func validateNATS(cfg *NATSConfig) error {
	if len(cfg.URLs) == 0 {
		return errors.New("output.nats.urls is required when publishing")
	}
	if err := validateSubjectPrefix(cfg.SubjectPrefix); err != nil {
		return fmt.Errorf("output.nats.subject_prefix %w", err)
	}
	if cfg.Timeout <= 0 {
		return errors.New("output.nats.timeout must be positive")
	}

	switch cfg.Auth.Type {
	case "none":
	case "creds":
		if cfg.Auth.CredsFile == "" {
			return errors.New("output.nats.auth.creds_file is required for creds auth")
		}
	case "token":
		if cfg.Auth.Token == "" {
			return errors.New("output.nats.auth.token is required for token auth")
		}
	case "userpass":
		if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
			return errors.New("output.nats.auth.username and password are required for userpass auth")
		}
	default:
		return fmt.Errorf("output.nats.auth.type must be none, creds, token or userpass (got %q)", cfg.Auth.Type)
	}

	if cfg.TLS.Enabled && (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return errors.New("output.nats.tls.cert_file and key_file must be set together")
	}

	return nil
}

// validateSubjectPrefix checks a dot-separated NATS subject prefix
func validateSubjectPrefix(prefix string) error {
	if prefix == "" {
		return errors.New("is required")
	}
	if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return errors.New("cannot start or end with a dot")
	}
	if strings.Contains(prefix, "..") {
		return errors.New("consecutive dots not allowed")
	}
	for _, token := range strings.Split(prefix, ".") {
		if !subjectTokenPattern.MatchString(token) {
			return fmt.Errorf("token %q contains invalid characters", token)
		}
	}
	return nil
}
