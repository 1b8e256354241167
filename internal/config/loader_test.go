package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, 5555, cfg.Port)
	assert.Equal(t, "192.168.1.0/24", cfg.SubnetPrefix().String())
	assert.Equal(t, 300*time.Millisecond, cfg.Scan.DialTimeout)
	assert.Equal(t, 5, cfg.Wireless.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Wireless.Backoff)
	assert.Equal(t, 2*time.Second, cfg.Wireless.SettleDelay)
	assert.False(t, cfg.Wireless.SkipWhenConnected)
	assert.Equal(t, "adb", cfg.ADB.Path)
	assert.Equal(t, BackendCLI, cfg.ADB.Backend)
	assert.Equal(t, "scrcpy", cfg.Mirror.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	inTempDir(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
subnet: 10.0.0.0/24
wireless:
  attempts: 3
  backoff: 500ms
mirror:
  args: ["--max-size", "1024"]
`), 0o644))
	t.Setenv("DROIDLINK_PORT", "5556")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 5556, cfg.Port)
	assert.Equal(t, "10.0.0.0/24", cfg.Subnet)
	assert.Equal(t, 3, cfg.Wireless.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Wireless.Backoff)
	assert.Equal(t, []string{"--max-size", "1024"}, cfg.Mirror.Args)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	inTempDir(t)
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:     5555,
			Subnet:   "192.168.1.0/24",
			Scan:     ScanConfig{DialTimeout: time.Second},
			Wireless: WirelessConfig{Attempts: 5, Backoff: 2 * time.Second},
			ADB:      ADBConfig{Path: "adb", Backend: BackendCLI},
			Mirror:   MirrorConfig{Path: "scrcpy"},
		}
	}
	c := valid()
	require.NoError(t, c.Validate())

	cases := map[string]func(*Config){
		"port":     func(c *Config) { c.Port = 0 },
		"subnet16": func(c *Config) { c.Subnet = "10.0.0.0/16" },
		"subnet6":  func(c *Config) { c.Subnet = "fd00::/24" },
		"garbage":  func(c *Config) { c.Subnet = "lan" },
		"attempts": func(c *Config) { c.Wireless.Attempts = 0 },
		"backend":  func(c *Config) { c.ADB.Backend = "usb" },
		"sweep":    func(c *Config) { c.Neighbor.Sweep = true },
		"timeout":  func(c *Config) { c.Scan.DialTimeout = 0 },
		"mirror":   func(c *Config) { c.Mirror.Path = "" },
		"negative": func(c *Config) { c.Wireless.Backoff = -time.Second },
	}
	for name, mutate := range cases {
		c := valid()
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}
}
