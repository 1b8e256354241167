package adb

import (
	"context"
	"fmt"

	goadb "github.com/zach-klippenstein/goadb"

	"droidlink/internal/models"
)

// serverClient is the part of the adb server protocol the bridge relies on.
type serverClient interface {
	Serials() ([]string, error)
	State(serial string) (goadb.DeviceState, error)
	RunCommand(serial, cmd string, args ...string) (string, error)
}

type goadbClient struct {
	adb *goadb.Adb
}

func (c goadbClient) Serials() ([]string, error) {
	infos, err := c.adb.ListDevices()
	if err != nil {
		return nil, err
	}
	serials := make([]string, 0, len(infos))
	for _, info := range infos {
		serials = append(serials, info.Serial)
	}
	return serials, nil
}

func (c goadbClient) State(serial string) (goadb.DeviceState, error) {
	return c.adb.Device(goadb.DeviceWithSerial(serial)).State()
}

func (c goadbClient) RunCommand(serial, cmd string, args ...string) (string, error) {
	return c.adb.Device(goadb.DeviceWithSerial(serial)).RunCommand(cmd, args...)
}

// ServerBridge talks to a running adb server over its socket for device
// listing and shell commands. Host-side operations (connect, tcpip) go
// through the CLI since they restart transports the server owns.
type ServerBridge struct {
	client serverClient
	cli    *CLI
}

// NewServerBridge connects to the adb server at host:port.
func NewServerBridge(host string, port int, cli *CLI) (*ServerBridge, error) {
	client, err := goadb.NewWithConfig(goadb.ServerConfig{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("could not reach adb server: %v", err)
	}
	return &ServerBridge{client: goadbClient{adb: client}, cli: cli}, nil
}

func (b *ServerBridge) Devices(ctx context.Context) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	serials, err := b.client.Serials()
	if err != nil {
		return nil, fmt.Errorf("list devices: %v", err)
	}

	sessions := make([]models.Session, 0, len(serials))
	for _, serial := range serials {
		st, err := b.client.State(serial)
		sessions = append(sessions, models.Session{Serial: serial, State: sessionState(st, err)})
	}
	return sessions, nil
}

// sessionState maps a server-reported state onto the words `adb devices` prints.
func sessionState(st goadb.DeviceState, err error) string {
	switch {
	case err != nil:
		return "offline"
	case st == goadb.StateOnline:
		return models.StateDevice
	case st == goadb.StateUnauthorized:
		return "unauthorized"
	default:
		return "offline"
	}
}

func (b *ServerBridge) Connect(ctx context.Context, addr string) error {
	return b.cli.Connect(ctx, addr)
}

func (b *ServerBridge) Shell(ctx context.Context, serial string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", fmt.Errorf("shell: no command")
	}
	out, err := b.client.RunCommand(serial, args[0], args[1:]...)
	if err != nil {
		return "", fmt.Errorf("shell %s: %v", args[0], err)
	}
	return out, nil
}

func (b *ServerBridge) TCPIP(ctx context.Context, serial string, port int) error {
	return b.cli.TCPIP(ctx, serial, port)
}
