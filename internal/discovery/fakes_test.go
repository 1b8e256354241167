package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"droidlink/internal/adb"
	"droidlink/internal/models"
)

type fakeBridge struct {
	sessions   []models.Session
	devicesErr error
	route      string
	// reachable lists the addr strings that accept adb connect
	reachable map[string]bool

	calls    []string
	connects []string
	shells   []string
}

func (b *fakeBridge) Devices(context.Context) ([]models.Session, error) {
	b.calls = append(b.calls, "devices")
	return b.sessions, b.devicesErr
}

func (b *fakeBridge) Connect(_ context.Context, addr string) error {
	b.calls = append(b.calls, "connect "+addr)
	b.connects = append(b.connects, addr)
	if b.reachable[addr] {
		return nil
	}
	return fmt.Errorf("%w: failed to connect to %s", adb.ErrConnectRejected, addr)
}

func (b *fakeBridge) Shell(_ context.Context, serial string, args ...string) (string, error) {
	b.calls = append(b.calls, "shell "+serial)
	b.shells = append(b.shells, serial)
	if b.route == "" {
		return "", errors.New("no route output")
	}
	return b.route, nil
}

func (b *fakeBridge) TCPIP(context.Context, string, int) error {
	return errors.New("not used")
}

type fakeNeighbors struct {
	addrs []netip.Addr
	err   error
	calls int
}

func (n *fakeNeighbors) Neighbors(context.Context) ([]netip.Addr, error) {
	n.calls++
	return n.addrs, n.err
}

type fakeProber struct {
	open   map[string]bool
	probed []string
}

func (p *fakeProber) Probe(_ context.Context, addr string) error {
	p.probed = append(p.probed, addr)
	if p.open[addr] {
		return nil
	}
	return errors.New("connection refused")
}

type fakePrompt struct {
	answer     string
	err        error
	suggestion string
	calls      int
}

func (p *fakePrompt) ManualAddress(_ context.Context, suggestion string) (string, error) {
	p.calls++
	p.suggestion = suggestion
	return p.answer, p.err
}
