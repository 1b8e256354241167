package adb

import (
	"context"
	"errors"

	"droidlink/internal/models"
)

// ErrConnectRejected is returned when the tool answered but refused the connection.
var ErrConnectRejected = errors.New("connection rejected")

// Bridge is the set of device-session tool operations the connector needs.
// All output parsing for the tool lives behind this interface.
type Bridge interface {
	// Devices lists the sessions currently known to the tool.
	Devices(ctx context.Context) ([]models.Session, error)
	// Connect establishes a network session against addr ("host:port").
	Connect(ctx context.Context, addr string) error
	// Shell runs a command on the device identified by serial.
	Shell(ctx context.Context, serial string, args ...string) (string, error)
	// TCPIP switches the session identified by serial into network-listening mode.
	TCPIP(ctx context.Context, serial string, port int) error
}
