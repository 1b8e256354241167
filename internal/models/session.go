package models

import (
	"net"
	"strconv"
	"strings"
)

// Transport is how a session reaches its device.
type Transport string

const (
	TransportUSB     Transport = "usb"
	TransportNetwork Transport = "network"
)

// StateDevice is the state of a session that accepts commands.
const StateDevice = "device"

// Session is one entry of the device-session tool's registry.
type Session struct {
	Serial string
	State  string
}

// Online reports whether the session accepts commands.
func (s Session) Online() bool {
	return s.State == StateDevice
}

// Transport classifies the session. Address-qualified serials and mDNS
// wireless serials are network sessions, everything else is USB.
func (s Session) Transport() Transport {
	if s.IsWireless() {
		return TransportNetwork
	}
	if _, _, ok := s.HostPort(); ok {
		return TransportNetwork
	}
	return TransportUSB
}

// IsWireless reports whether the serial carries an adb mDNS service tag.
func (s Session) IsWireless() bool {
	return strings.Contains(s.Serial, "._adb-tls-connect.") ||
		strings.Contains(s.Serial, "._adb._tcp") ||
		(strings.HasPrefix(s.Serial, "adb-") && strings.Contains(s.Serial, "._tcp"))
}

// HostPort splits an address-qualified serial.
func (s Session) HostPort() (string, int, bool) {
	host, portStr, err := net.SplitHostPort(s.Serial)
	if err != nil || host == "" {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}
