package discovery

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droidlink/internal/models"
)

const port = 5555

func newLocator(b *fakeBridge, n *fakeNeighbors, p *fakeProber, pr *fakePrompt) *Locator {
	return &Locator{
		Bridge:    b,
		Port:      port,
		Subnet:    netip.MustParsePrefix("192.168.1.0/24"),
		Neighbors: n,
		Prober:    p,
		Prompt:    pr,
	}
}

func TestLocateAlreadyConnectedShortCircuits(t *testing.T) {
	b := &fakeBridge{sessions: []models.Session{
		{Serial: "R58M123ABC", State: "device"},
		{Serial: "192.168.1.42:5555", State: "device"},
	}}
	n := &fakeNeighbors{}
	p := &fakeProber{}
	pr := &fakePrompt{}

	res, err := newLocator(b, n, p, pr).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MethodAlreadyConnected, res.Method)
	assert.Equal(t, "192.168.1.42:5555", res.Endpoint.String())
	assert.True(t, res.Connected)

	assert.Equal(t, []string{"devices"}, b.calls)
	assert.Zero(t, n.calls)
	assert.Empty(t, p.probed)
	assert.Zero(t, pr.calls)
}

func TestLocateIgnoresSessionsOnOtherPortsOrOffline(t *testing.T) {
	b := &fakeBridge{
		sessions: []models.Session{
			{Serial: "192.168.1.42:5037", State: "device"},
			{Serial: "192.168.1.43:5555", State: "offline"},
		},
		reachable: map[string]bool{"10.0.0.9:5555": true},
	}
	n := &fakeNeighbors{addrs: []netip.Addr{netip.MustParseAddr("10.0.0.9")}}

	res, err := newLocator(b, n, &fakeProber{}, &fakePrompt{}).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MethodNeighborScan, res.Method)
}

func TestLocateRouteLookup(t *testing.T) {
	b := &fakeBridge{
		sessions: []models.Session{
			{Serial: "adb-XYZ._adb-tls-connect._tcp", State: "device"},
			{Serial: "R58M123ABC", State: "device"},
		},
		route:     "192.168.1.0/24 dev wlan0 proto kernel scope link src 192.168.1.42\n",
		reachable: map[string]bool{"192.168.1.42:5555": true},
	}
	n := &fakeNeighbors{}

	res, err := newLocator(b, n, &fakeProber{}, &fakePrompt{}).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MethodRouteLookup, res.Method)
	assert.Equal(t, "192.168.1.42:5555", res.Endpoint.String())
	assert.Equal(t, []string{"R58M123ABC"}, b.shells)
	assert.Zero(t, n.calls)
}

// Neighbor table [10.0.0.5, 10.0.0.9] with a session service reachable only
// at 10.0.0.9 selects 10.0.0.9 and never probes the range.
func TestLocateNeighborTableSelectsReachable(t *testing.T) {
	b := &fakeBridge{reachable: map[string]bool{"10.0.0.9:5555": true}}
	n := &fakeNeighbors{addrs: []netip.Addr{
		netip.MustParseAddr("10.0.0.5"),
		netip.MustParseAddr("10.0.0.9"),
	}}
	p := &fakeProber{}
	pr := &fakePrompt{}

	res, err := newLocator(b, n, p, pr).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MethodNeighborScan, res.Method)
	assert.Equal(t, "10.0.0.9", res.Endpoint.Host)
	assert.Equal(t, []string{"10.0.0.5:5555", "10.0.0.9:5555"}, b.connects)
	assert.Empty(t, p.probed)
	assert.Zero(t, pr.calls)

	require.Len(t, res.Attempts, 2)
	assert.False(t, res.Attempts[0].Success)
	assert.True(t, res.Attempts[1].Success)
}

func TestLocatePortScanStaysInSubnetAndStopsAtFirstSession(t *testing.T) {
	b := &fakeBridge{reachable: map[string]bool{"192.168.1.20:5555": true}}
	n := &fakeNeighbors{err: ErrMethodFailed}
	p := &fakeProber{open: map[string]bool{
		"192.168.1.7:5555":  true, // open but refuses adb
		"192.168.1.20:5555": true,
		"192.168.1.30:5555": true,
	}}

	res, err := newLocator(b, n, p, &fakePrompt{}).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MethodPortScan, res.Method)
	assert.Equal(t, "192.168.1.20:5555", res.Endpoint.String())

	require.Len(t, p.probed, 20)
	assert.Equal(t, "192.168.1.1:5555", p.probed[0])
	for _, addr := range p.probed {
		ap := netip.MustParseAddrPort(addr)
		assert.True(t, netip.MustParsePrefix("192.168.1.0/24").Contains(ap.Addr()), addr)
	}
	// only ports that opened were offered a session
	assert.Equal(t, []string{"192.168.1.7:5555", "192.168.1.20:5555"}, b.connects)
}

func TestLocateFallsBackToManualWithHint(t *testing.T) {
	b := &fakeBridge{
		sessions: []models.Session{{Serial: "R58M123ABC", State: "device"}},
		route:    "192.168.1.0/24 dev wlan0 proto kernel scope link src 192.168.1.42\n",
	}
	p := &fakeProber{}
	pr := &fakePrompt{answer: "192.168.1.42"}

	res, err := newLocator(b, &fakeNeighbors{}, p, pr).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MethodManual, res.Method)
	assert.Equal(t, "192.168.1.42:5555", res.Endpoint.String())
	assert.False(t, res.Connected)
	assert.Equal(t, "192.168.1.42", pr.suggestion)
	assert.Len(t, p.probed, 254)
}

func TestLocateManualEmptyIsTerminal(t *testing.T) {
	res, err := newLocator(&fakeBridge{}, &fakeNeighbors{}, &fakeProber{}, &fakePrompt{answer: "  "}).
		Locate(context.Background())
	assert.ErrorIs(t, err, ErrNoEndpoint)
	assert.True(t, res.Endpoint.IsZero())
}

func TestLocateStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBridge{}

	_, err := newLocator(b, &fakeNeighbors{}, &fakeProber{}, &fakePrompt{}).Locate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.calls)
}

func TestParseManual(t *testing.T) {
	ep, err := ParseManual("10.0.0.9", port)
	require.NoError(t, err)
	assert.Equal(t, models.Endpoint{Host: "10.0.0.9", Port: port}, ep)

	ep, err = ParseManual(" 10.0.0.9:5556 ", port)
	require.NoError(t, err)
	assert.Equal(t, 5556, ep.Port)

	ep, err = ParseManual("pixel.lan", port)
	require.NoError(t, err)
	assert.Equal(t, "pixel.lan", ep.Host)

	for _, bad := range []string{"", "10.0.0", "10.0.0.9:0", "10.0.0.9:http", "bad host", "-x.lan"} {
		_, err := ParseManual(bad, port)
		assert.ErrorIs(t, err, ErrNoEndpoint, bad)
	}
}

func TestFindUSBSession(t *testing.T) {
	sessions := []models.Session{
		{Serial: "10.0.0.9:5555", State: "device"},
		{Serial: "adb-XYZ._adb-tls-connect._tcp", State: "device"},
		{Serial: "OFFLINE1", State: "offline"},
		{Serial: "R58M123ABC", State: "device"},
	}
	s, ok := FindUSBSession(sessions)
	require.True(t, ok)
	assert.Equal(t, "R58M123ABC", s.Serial)

	_, ok = FindUSBSession(sessions[:3])
	assert.False(t, ok)
}
