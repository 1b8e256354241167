package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droidlink/internal/connector"
)

func TestDiagnostic(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("%w: scrcpy", connector.ErrToolMissing):        "Missing required tool",
		connector.ErrUSBDeviceNotFound:                            "No USB device detected",
		fmt.Errorf("%w: closed", connector.ErrModeSwitchFailed):   "TCP/IP mode",
		fmt.Errorf("%w: 5 attempts", connector.ErrRetryExhausted): "Wi-Fi",
		fmt.Errorf("%w: exit 1", connector.ErrMirrorLaunchFailed): "Screen mirroring failed",
		fmt.Errorf("locate: %w", connector.ErrNoEndpoint):         "No device address",
		context.Canceled: "Interrupted",
		errors.New("config validation failed: port 0 out of range"): "port 0 out of range",
	}
	for err, want := range cases {
		assert.Contains(t, diagnostic(err), want)
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "port", "subnet", "log-level", "adb", "scrcpy"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "5556", "--subnet", "10.0.0.0/24"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 5556, cfg.Port)
	assert.Equal(t, "10.0.0.0/24", cfg.Subnet)
	assert.Equal(t, "adb", cfg.ADB.Path)
}

func TestLoadConfigRejectsBadSubnet(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--subnet", "10.0.0.0/16"}))

	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
