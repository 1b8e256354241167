package connector

import (
	"errors"

	"droidlink/internal/discovery"
	"droidlink/internal/mirror"
)

// Failure classes. Everything except ErrDiscoveryMethodFailed ends the run.
var (
	ErrToolMissing           = errors.New("required tool missing")
	ErrDiscoveryMethodFailed = discovery.ErrMethodFailed
	ErrNoEndpoint            = discovery.ErrNoEndpoint
	ErrUSBDeviceNotFound     = errors.New("no USB device detected")
	ErrModeSwitchFailed      = errors.New("switching to TCP/IP mode failed")
	ErrRetryExhausted        = errors.New("wireless connection not established")
	ErrMirrorLaunchFailed    = mirror.ErrLaunch
)
