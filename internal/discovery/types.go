package discovery

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

// ErrMethodFailed marks a discovery step that produced no usable endpoint.
// It never ends a run on its own; the next step is tried.
var ErrMethodFailed = errors.New("discovery method failed")

// ErrNoEndpoint is returned when manual entry yields nothing usable.
var ErrNoEndpoint = errors.New("no endpoint entered")

// Host is a device that answered an ARP request.
type Host struct {
	IP  net.IP
	MAC net.HardwareAddr
}

// NeighborSource lists addresses the local host has recently seen on its links.
type NeighborSource interface {
	Neighbors(ctx context.Context) ([]netip.Addr, error)
}

// Prober checks that something accepts TCP connections at addr.
type Prober interface {
	Probe(ctx context.Context, addr string) error
}

// ManualPrompter asks the user for an address when automation runs dry.
// suggestion may be empty.
type ManualPrompter interface {
	ManualAddress(ctx context.Context, suggestion string) (string, error)
}
