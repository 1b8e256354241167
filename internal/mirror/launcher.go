// Package mirror hands a resolved endpoint to the screen-mirroring tool.
package mirror

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrLaunch wraps any failure to start or run the mirroring tool.
var ErrLaunch = errors.New("mirror launch failed")

// Launcher runs scrcpy (or a compatible tool) in the foreground.
type Launcher struct {
	Path string
	Args []string
	// Out receives the tool's output. Defaults to os.Stdout.
	Out io.Writer
	Log logrus.FieldLogger
}

// Command returns the argument list used for endpoint.
func (l *Launcher) Command(endpoint string) []string {
	args := []string{"--serial", endpoint}
	return append(args, l.Args...)
}

// Run blocks until the tool exits. A non-zero exit is an error.
func (l *Launcher) Run(ctx context.Context, endpoint string) error {
	path := l.Path
	if path == "" {
		path = "scrcpy"
	}
	out := l.Out
	if out == nil {
		out = os.Stdout
	}

	cmd := exec.CommandContext(ctx, path, l.Command(endpoint)...)
	cmd.Stdin = os.Stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to get stdout pipe: %v", ErrLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to get stderr pipe: %v", ErrLaunch, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start %s: %v", ErrLaunch, path, err)
	}

	var mu sync.Mutex
	var tail []string
	var wg sync.WaitGroup
	forward := func(r io.Reader, stream string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			fmt.Fprintln(out, line)
			if stream == "stderr" && strings.TrimSpace(line) != "" {
				tail = append(tail, line)
				if len(tail) > 5 {
					tail = tail[1:]
				}
			}
			mu.Unlock()
			if l.Log != nil {
				l.Log.WithField("stream", stream).Debug(line)
			}
		}
	}
	wg.Add(2)
	go forward(stdout, "stdout")
	go forward(stderr, "stderr")
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(tail) > 0 {
			return fmt.Errorf("%w: %v (%s)", ErrLaunch, err, tail[len(tail)-1])
		}
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	return nil
}
