package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"droidlink/internal/models"
)

// CLI drives the adb binary.
type CLI struct {
	Path    string
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// NewCLI creates a CLI bridge for the adb binary at path.
func NewCLI(path string, timeout time.Duration, log logrus.FieldLogger) *CLI {
	if path == "" {
		path = "adb"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CLI{Path: path, Timeout: timeout, Log: log}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (c *CLI) run(ctx context.Context, args ...string) result {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("command timed out: %w", err)
	}
	if c.Log != nil {
		c.Log.WithFields(logrus.Fields{
			"args": strings.Join(args, " "),
			"err":  err,
		}).Debug("adb")
	}
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (c *CLI) Devices(ctx context.Context) ([]models.Session, error) {
	res := c.run(ctx, "devices")
	if res.err != nil {
		return nil, fmt.Errorf("adb devices: %v (%s)", res.err, strings.TrimSpace(res.stderr))
	}
	return ParseDevices(res.stdout), nil
}

func (c *CLI) Connect(ctx context.Context, addr string) error {
	res := c.run(ctx, "connect", addr)
	if res.err != nil {
		return fmt.Errorf("adb connect %s: %v (%s)", addr, res.err, strings.TrimSpace(res.stdout+res.stderr))
	}
	return ParseConnect(res.stdout + res.stderr)
}

func (c *CLI) Shell(ctx context.Context, serial string, args ...string) (string, error) {
	full := append([]string{"-s", serial, "shell"}, args...)
	res := c.run(ctx, full...)
	if res.err != nil {
		return "", fmt.Errorf("adb shell: %v (%s)", res.err, strings.TrimSpace(res.stderr))
	}
	return res.stdout, nil
}

func (c *CLI) TCPIP(ctx context.Context, serial string, port int) error {
	res := c.run(ctx, "-s", serial, "tcpip", strconv.Itoa(port))
	if res.err != nil {
		return fmt.Errorf("adb tcpip: %v (%s)", res.err, strings.TrimSpace(res.stdout+res.stderr))
	}
	if strings.Contains(strings.ToLower(res.stdout+res.stderr), "error") {
		return fmt.Errorf("adb tcpip: %s", strings.TrimSpace(res.stdout+res.stderr))
	}
	return nil
}
