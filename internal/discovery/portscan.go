package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// Dialer opens network connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProber performs a full TCP connect and closes the connection straight away.
type TCPProber struct {
	Dialer  Dialer
	Timeout time.Duration
}

// NewTCPProber returns a prober with a direct dialer.
func NewTCPProber(timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	return &TCPProber{
		Dialer:  &net.Dialer{Timeout: timeout},
		Timeout: timeout,
	}
}

func (p *TCPProber) Probe(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := p.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// RangeCandidates lists .1 through .254 of an IPv4 /24.
func RangeCandidates(subnet netip.Prefix) ([]netip.Addr, error) {
	if !subnet.Addr().Is4() || subnet.Bits() != 24 {
		return nil, fmt.Errorf("subnet %s is not an IPv4 /24", subnet)
	}
	base := subnet.Masked().Addr().As4()

	out := make([]netip.Addr, 0, 254)
	for last := 1; last <= 254; last++ {
		base[3] = byte(last)
		out = append(out, netip.AddrFrom4(base))
	}
	return out, nil
}
