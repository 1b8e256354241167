// Package connector resolves a wireless debugging endpoint, upgrades a USB
// session to network mode when needed and hands the endpoint to the mirror.
package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"droidlink/internal/adb"
	"droidlink/internal/discovery"
	"droidlink/internal/models"
	"droidlink/internal/retry"
)

// Locator resolves a candidate endpoint.
type Locator interface {
	Locate(ctx context.Context) (discovery.Resolution, error)
}

// USBConfirmer waits for the user to plug the device in.
type USBConfirmer interface {
	ConfirmUSB(ctx context.Context) error
}

// Mirror consumes the resolved endpoint.
type Mirror interface {
	Run(ctx context.Context, endpoint string) error
}

// Options tune the USB -> network upgrade.
type Options struct {
	SettleDelay time.Duration
	Attempts    int
	Backoff     time.Duration
	// SkipWhenConnected trusts a live session found during discovery and
	// leaves the USB device alone.
	SkipWhenConnected bool
}

// Connector runs the whole procedure for one invocation.
type Connector struct {
	Bridge  adb.Bridge
	Locator Locator
	Confirm USBConfirmer
	Mirror  Mirror
	Options Options
	Sleep   retry.Sleeper
	Log     logrus.FieldLogger
	Now     func() time.Time
}

// Result is passed back up the call chain instead of living in globals.
type Result struct {
	Endpoint  models.Endpoint
	Method    models.Method
	USBSerial string
	Upgraded  bool
	Attempts  []models.Attempt
}

// Launch hands endpoint to the mirror and blocks until it exits.
func (c *Connector) Launch(ctx context.Context, endpoint models.Endpoint) error {
	if c.Mirror == nil {
		return nil
	}
	if endpoint.IsZero() {
		return fmt.Errorf("%w: no endpoint", ErrMirrorLaunchFailed)
	}

	c.logger().WithField("endpoint", endpoint.String()).Info("launching mirror")
	if err := c.Mirror.Run(ctx, endpoint.String()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, ErrMirrorLaunchFailed) {
			err = fmt.Errorf("%w: %v", ErrMirrorLaunchFailed, err)
		}
		return err
	}
	return nil
}

// Resolve locates an endpoint, then requires a USB session, switches it to
// network mode and reconnects. With SkipWhenConnected a live session found
// during discovery is used as is.
func (c *Connector) Resolve(ctx context.Context) (Result, error) {
	loc, err := c.Locator.Locate(ctx)
	res := Result{
		Endpoint: loc.Endpoint,
		Method:   loc.Method,
		Attempts: loc.Attempts,
	}
	if err != nil {
		return res, err
	}

	if loc.Connected && c.Options.SkipWhenConnected {
		return res, nil
	}
	if err := c.upgrade(ctx, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Connector) upgrade(ctx context.Context, res *Result) error {
	log := c.logger().WithField("endpoint", res.Endpoint.String())

	if c.Confirm != nil {
		if err := c.Confirm.ConfirmUSB(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrUSBDeviceNotFound, err)
		}
	}

	sessions, err := c.Bridge.Devices(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUSBDeviceNotFound, err)
	}
	usb, ok := discovery.FindUSBSession(sessions)
	if !ok {
		return ErrUSBDeviceNotFound
	}
	res.USBSerial = usb.Serial
	log = log.WithField("serial", usb.Serial)

	port := res.Endpoint.Port
	if err := c.Bridge.TCPIP(ctx, usb.Serial, port); err != nil {
		return fmt.Errorf("%w: %v", ErrModeSwitchFailed, err)
	}
	log.Info("switched to tcpip mode")

	sleep := c.Sleep
	if sleep == nil {
		sleep = retry.Sleep
	}
	if err := sleep(ctx, c.Options.SettleDelay); err != nil {
		return err
	}

	policy := retry.Policy{
		Attempts: c.Options.Attempts,
		Backoff:  c.Options.Backoff,
		Sleep:    sleep,
	}
	addr := res.Endpoint.String()
	_, err = policy.Do(ctx, func(ctx context.Context, attempt int) error {
		err := c.Bridge.Connect(ctx, addr)
		res.Attempts = append(res.Attempts, c.attempt(addr, err))
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Debug("reconnect failed")
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrRetryExhausted, err)
	}

	res.Upgraded = true
	return nil
}

func (c *Connector) attempt(addr string, err error) models.Attempt {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	a := models.Attempt{
		Candidate: addr,
		Method:    models.MethodWirelessUpgrade,
		Success:   err == nil,
		Timestamp: now(),
	}
	if err != nil {
		a.Err = err.Error()
	}
	return a
}

func (c *Connector) logger() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}
