package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"droidlink/internal/adb"
	"droidlink/internal/models"
)

// Locator finds a network endpoint for a wireless debugging session. The
// methods run in a fixed order and the first one that yields an endpoint wins.
type Locator struct {
	Bridge    adb.Bridge
	Port      int
	Subnet    netip.Prefix
	Neighbors NeighborSource
	Prober    Prober
	Prompt    ManualPrompter
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// Resolution is the outcome of Locate.
type Resolution struct {
	Endpoint models.Endpoint
	Method   models.Method
	// Connected is true when a session to Endpoint is already established.
	Connected bool
	Attempts  []models.Attempt
	// RouteHint is the address the device reported for itself, if any.
	RouteHint string
}

type step struct {
	method models.Method
	run    func(ctx context.Context) (models.Endpoint, bool, error)
}

// locateRun holds per-invocation state so Locator itself stays reusable.
type locateRun struct {
	l   *Locator
	res Resolution
}

// Locate runs the discovery methods in priority order.
func (l *Locator) Locate(ctx context.Context) (Resolution, error) {
	r := &locateRun{l: l}

	for _, s := range r.steps() {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}

		ep, connected, err := s.run(ctx)
		if err == nil {
			r.res.Endpoint = ep
			r.res.Method = s.method
			r.res.Connected = connected
			l.logger().WithFields(logrus.Fields{
				"endpoint":  ep.String(),
				"method":    s.method,
				"connected": connected,
			}).Info("endpoint resolved")
			return r.res, nil
		}

		if s.method == models.MethodManual || ctx.Err() != nil {
			return r.res, err
		}
		l.logger().WithError(err).WithField("method", s.method).Debug("discovery method failed")
	}
	return r.res, ErrNoEndpoint
}

func (r *locateRun) steps() []step {
	return []step{
		{models.MethodAlreadyConnected, r.alreadyConnected},
		{models.MethodRouteLookup, r.routeLookup},
		{models.MethodNeighborScan, r.neighborScan},
		{models.MethodPortScan, r.portScan},
		{models.MethodManual, r.manual},
	}
}

func (r *locateRun) alreadyConnected(ctx context.Context) (models.Endpoint, bool, error) {
	sessions, err := r.l.Bridge.Devices(ctx)
	if err != nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: %v", ErrMethodFailed, err)
	}
	for _, s := range sessions {
		if !s.Online() {
			continue
		}
		host, port, ok := s.HostPort()
		if !ok || port != r.l.Port {
			continue
		}
		ep := models.Endpoint{Host: host, Port: port}
		r.record(ep, models.MethodAlreadyConnected, nil)
		return ep, true, nil
	}
	return models.Endpoint{}, false, fmt.Errorf("%w: no session on port %d", ErrMethodFailed, r.l.Port)
}

func (r *locateRun) routeLookup(ctx context.Context) (models.Endpoint, bool, error) {
	sessions, err := r.l.Bridge.Devices(ctx)
	if err != nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: %v", ErrMethodFailed, err)
	}
	usb, ok := FindUSBSession(sessions)
	if !ok {
		return models.Endpoint{}, false, fmt.Errorf("%w: no local session to query", ErrMethodFailed)
	}

	out, err := r.l.Bridge.Shell(ctx, usb.Serial, "ip", "route")
	if err != nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: %v", ErrMethodFailed, err)
	}
	candidate := adb.ParseRoute(out)
	if candidate == "" {
		return models.Endpoint{}, false, fmt.Errorf("%w: no address in routing table", ErrMethodFailed)
	}
	r.res.RouteHint = candidate

	ep := models.Endpoint{Host: candidate, Port: r.l.Port}
	if err := r.connect(ctx, ep, models.MethodRouteLookup); err != nil {
		return models.Endpoint{}, false, err
	}
	return ep, true, nil
}

func (r *locateRun) neighborScan(ctx context.Context) (models.Endpoint, bool, error) {
	if r.l.Neighbors == nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: no neighbor source", ErrMethodFailed)
	}
	addrs, err := r.l.Neighbors.Neighbors(ctx)
	if err != nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: %v", ErrMethodFailed, err)
	}

	for _, a := range addrs {
		if ctx.Err() != nil {
			return models.Endpoint{}, false, ctx.Err()
		}
		ep := models.Endpoint{Host: a.String(), Port: r.l.Port}
		if err := r.connect(ctx, ep, models.MethodNeighborScan); err == nil {
			return ep, true, nil
		}
	}
	return models.Endpoint{}, false, fmt.Errorf("%w: none of %d neighbors accepted a session", ErrMethodFailed, len(addrs))
}

func (r *locateRun) portScan(ctx context.Context) (models.Endpoint, bool, error) {
	candidates, err := RangeCandidates(r.l.Subnet)
	if err != nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: %v", ErrMethodFailed, err)
	}
	if r.l.Prober == nil {
		return models.Endpoint{}, false, fmt.Errorf("%w: no prober", ErrMethodFailed)
	}

	for _, a := range candidates {
		if ctx.Err() != nil {
			return models.Endpoint{}, false, ctx.Err()
		}
		ep := models.Endpoint{Host: a.String(), Port: r.l.Port}
		if err := r.l.Prober.Probe(ctx, ep.String()); err != nil {
			continue
		}
		r.l.logger().WithField("endpoint", ep.String()).Debug("port open")
		if err := r.connect(ctx, ep, models.MethodPortScan); err == nil {
			return ep, true, nil
		}
	}
	return models.Endpoint{}, false, fmt.Errorf("%w: nothing listening on %s port %d", ErrMethodFailed, r.l.Subnet, r.l.Port)
}

func (r *locateRun) manual(ctx context.Context) (models.Endpoint, bool, error) {
	if r.l.Prompt == nil {
		return models.Endpoint{}, false, ErrNoEndpoint
	}
	input, err := r.l.Prompt.ManualAddress(ctx, r.res.RouteHint)
	if err != nil {
		if ctx.Err() != nil {
			return models.Endpoint{}, false, ctx.Err()
		}
		return models.Endpoint{}, false, fmt.Errorf("%w: %v", ErrNoEndpoint, err)
	}
	ep, err := ParseManual(input, r.l.Port)
	if err != nil {
		return models.Endpoint{}, false, err
	}

	// The device may already be listening; if not, the caller upgrades a USB
	// session and reconnects.
	connected := r.connect(ctx, ep, models.MethodManual) == nil
	return ep, connected, nil
}

func (r *locateRun) connect(ctx context.Context, ep models.Endpoint, method models.Method) error {
	err := r.l.Bridge.Connect(ctx, ep.String())
	r.record(ep, method, err)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMethodFailed, err)
	}
	return nil
}

func (r *locateRun) record(ep models.Endpoint, method models.Method, err error) {
	a := models.Attempt{
		Candidate: ep.String(),
		Method:    method,
		Success:   err == nil,
		Timestamp: r.l.now(),
	}
	if err != nil {
		a.Err = err.Error()
	}
	r.res.Attempts = append(r.res.Attempts, a)
}

func (l *Locator) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Locator) logger() logrus.FieldLogger {
	if l.Log != nil {
		return l.Log
	}
	return logrus.StandardLogger()
}

// FindUSBSession returns the first online session that is neither tagged
// wireless nor address-qualified.
func FindUSBSession(sessions []models.Session) (models.Session, bool) {
	for _, s := range sessions {
		if s.Online() && s.Transport() == models.TransportUSB {
			return s, true
		}
	}
	return models.Session{}, false
}

// ParseManual accepts "host" or "host:port". A bare host gets defaultPort.
func ParseManual(input string, defaultPort int) (models.Endpoint, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return models.Endpoint{}, ErrNoEndpoint
	}

	host, port := input, defaultPort
	if h, p, err := net.SplitHostPort(input); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return models.Endpoint{}, fmt.Errorf("%w: bad port %q", ErrNoEndpoint, p)
		}
		host, port = h, n
	}

	if !validHost(host) {
		return models.Endpoint{}, fmt.Errorf("%w: %q is not an address", ErrNoEndpoint, host)
	}
	return models.Endpoint{Host: host, Port: port}, nil
}

func validHost(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	numeric := true
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, c := range label {
			switch {
			case c >= '0' && c <= '9':
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-':
				numeric = false
			default:
				return false
			}
		}
	}
	// Dotted digits that failed to parse as an address are a typo, not a name.
	return !numeric
}
