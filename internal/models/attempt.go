package models

import (
	"net"
	"strconv"
	"time"
)

// Method identifies which discovery step produced a candidate.
type Method string

const (
	MethodAlreadyConnected Method = "already-connected"
	MethodRouteLookup      Method = "shell-route-lookup"
	MethodNeighborScan     Method = "neighbor-table-scan"
	MethodPortScan         Method = "port-scan"
	MethodManual           Method = "manual"
	MethodWirelessUpgrade  Method = "wireless-upgrade"
)

// Attempt records one try at establishing a session against a candidate.
type Attempt struct {
	Candidate string
	Method    Method
	Success   bool
	Err       string
	Timestamp time.Time
}

// Endpoint is a network address of a debugging session.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsZero reports whether no host has been set.
func (e Endpoint) IsZero() bool {
	return e.Host == ""
}
