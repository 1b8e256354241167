package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Port     int            `mapstructure:"port"`
	Subnet   string         `mapstructure:"subnet"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Neighbor NeighborConfig `mapstructure:"neighbor"`
	Wireless WirelessConfig `mapstructure:"wireless"`
	ADB      ADBConfig      `mapstructure:"adb"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Log      LogConfig      `mapstructure:"log"`
}

type ScanConfig struct {
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// NeighborConfig controls the optional ARP sweep that tops up the neighbor table.
type NeighborConfig struct {
	Sweep     bool   `mapstructure:"sweep"`
	Interface string `mapstructure:"interface"`
}

// WirelessConfig bounds the USB -> network upgrade.
type WirelessConfig struct {
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	Attempts          int           `mapstructure:"attempts"`
	Backoff           time.Duration `mapstructure:"backoff"`
	SkipWhenConnected bool          `mapstructure:"skip_when_connected"`
}

type ADBConfig struct {
	Path       string        `mapstructure:"path"`
	Backend    string        `mapstructure:"backend"`
	ServerHost string        `mapstructure:"server_host"`
	ServerPort int           `mapstructure:"server_port"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MirrorConfig struct {
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
}

// LogConfig mirrors the rotation settings lumberjack takes.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

const (
	BackendCLI    = "cli"
	BackendServer = "server"
)

// SubnetPrefix parses Subnet. Validate guarantees it succeeds.
func (c *Config) SubnetPrefix() netip.Prefix {
	p, _ := netip.ParsePrefix(c.Subnet)
	return p.Masked()
}

// Validate checks the values the connector relies on.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	p, err := netip.ParsePrefix(c.Subnet)
	if err != nil {
		return fmt.Errorf("invalid subnet %q: %w", c.Subnet, err)
	}
	if !p.Addr().Is4() || p.Bits() != 24 {
		return fmt.Errorf("subnet %q must be an IPv4 /24", c.Subnet)
	}

	if c.Wireless.Attempts < 1 {
		return fmt.Errorf("wireless.attempts must be at least 1, got %d", c.Wireless.Attempts)
	}
	if c.Wireless.Backoff < 0 || c.Wireless.SettleDelay < 0 {
		return fmt.Errorf("wireless delays must not be negative")
	}
	if c.Scan.DialTimeout <= 0 {
		return fmt.Errorf("scan.dial_timeout must be positive")
	}

	switch strings.ToLower(c.ADB.Backend) {
	case BackendCLI, BackendServer:
	default:
		return fmt.Errorf("unknown adb backend %q", c.ADB.Backend)
	}
	if c.ADB.Path == "" {
		return fmt.Errorf("adb.path must not be empty")
	}
	if c.Mirror.Path == "" {
		return fmt.Errorf("mirror.path must not be empty")
	}
	if c.Neighbor.Sweep && c.Neighbor.Interface == "" {
		return fmt.Errorf("neighbor.sweep needs neighbor.interface")
	}
	return nil
}
