package adb

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"droidlink/internal/models"
)

// ParseDevices parses the output of `adb devices`.
func ParseDevices(out string) []models.Session {
	var sessions []models.Session

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Header and daemon startup chatter
		if strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		sessions = append(sessions, models.Session{
			Serial: fields[0],
			State:  fields[1],
		})
	}
	return sessions
}

// ParseConnect interprets the output of `adb connect`. adb exits zero on most
// refusals, so the text is the only reliable signal.
func ParseConnect(out string) error {
	text := strings.ToLower(strings.TrimSpace(out))
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrConnectRejected)
	}
	for _, bad := range []string{"failed", "unable", "cannot", "error", "refused"} {
		if strings.Contains(text, bad) {
			return fmt.Errorf("%w: %s", ErrConnectRejected, strings.TrimSpace(out))
		}
	}
	if strings.Contains(text, "connected to") {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConnectRejected, strings.TrimSpace(out))
}

// ParseRoute extracts the device's own address from `ip route` output.
// A wlan interface wins over any other interface carrying a src field.
func ParseRoute(out string) string {
	var fallback string

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		var dev, src string
		for i := 0; i+1 < len(fields); i++ {
			switch fields[i] {
			case "dev":
				dev = fields[i+1]
			case "src":
				src = fields[i+1]
			}
		}

		ip := net.ParseIP(src)
		if ip == nil || ip.To4() == nil || ip.IsLoopback() {
			continue
		}
		if strings.HasPrefix(dev, "wlan") {
			return ip.String()
		}
		if fallback == "" {
			fallback = ip.String()
		}
	}
	return fallback
}
