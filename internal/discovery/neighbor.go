package discovery

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %v", name, err)
	}
	return string(out), nil
}

// NeighborTable reads the host's neighbor/ARP cache. It tries `ip neigh`,
// then /proc/net/arp, then `arp -an`, and returns the first non-empty answer.
type NeighborTable struct {
	Run      CommandRunner
	ProcPath string
	Log      logrus.FieldLogger
}

// NewNeighborTable returns a table reader backed by the real system.
func NewNeighborTable(log logrus.FieldLogger) *NeighborTable {
	return &NeighborTable{
		Run:      execRunner,
		ProcPath: "/proc/net/arp",
		Log:      log,
	}
}

func (t *NeighborTable) Neighbors(ctx context.Context) ([]netip.Addr, error) {
	run := t.Run
	if run == nil {
		run = execRunner
	}

	var errs []string

	if out, err := run(ctx, "ip", "neigh", "show"); err == nil {
		if addrs := ParseIPNeigh(out); len(addrs) > 0 {
			return addrs, nil
		}
	} else {
		errs = append(errs, err.Error())
	}

	if t.ProcPath != "" {
		if data, err := os.ReadFile(t.ProcPath); err == nil {
			if addrs := ParseProcARP(string(data)); len(addrs) > 0 {
				return addrs, nil
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if out, err := run(ctx, "arp", "-an"); err == nil {
		if addrs := ParseARPAn(out); len(addrs) > 0 {
			return addrs, nil
		}
	} else {
		errs = append(errs, err.Error())
	}

	if t.Log != nil && len(errs) > 0 {
		t.Log.WithField("errors", strings.Join(errs, "; ")).Debug("neighbor table sources failed")
	}
	return nil, fmt.Errorf("%w: neighbor table empty", ErrMethodFailed)
}

// ParseIPNeigh parses `ip neigh show` output, keeping usable IPv4 entries.
func ParseIPNeigh(out string) []netip.Addr {
	var addrs []netip.Addr
	seen := make(map[netip.Addr]bool)

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		state := fields[len(fields)-1]
		if state == "FAILED" || state == "INCOMPLETE" {
			continue
		}
		addr, err := netip.ParseAddr(fields[0])
		if err != nil || !addr.Is4() || seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return addrs
}

// ParseProcARP parses /proc/net/arp. Entries with flags 0x0 are incomplete.
func ParseProcARP(data string) []netip.Addr {
	var addrs []netip.Addr
	seen := make(map[netip.Addr]bool)

	scanner := bufio.NewScanner(strings.NewReader(data))
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[2] == "0x0" || fields[3] == "00:00:00:00:00:00" {
			continue
		}
		addr, err := netip.ParseAddr(fields[0])
		if err != nil || !addr.Is4() || seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return addrs
}

// ParseARPAn parses BSD-style `arp -an` output:
//
//	? (10.0.0.5) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
func ParseARPAn(out string) []netip.Addr {
	var addrs []netip.Addr
	seen := make(map[netip.Addr]bool)

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "incomplete") {
			continue
		}
		open := strings.Index(line, "(")
		end := strings.Index(line, ")")
		if open < 0 || end <= open {
			continue
		}
		addr, err := netip.ParseAddr(line[open+1 : end])
		if err != nil || !addr.Is4() || seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return addrs
}
