package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"droidlink/internal/adb"
	"droidlink/internal/config"
	"droidlink/internal/connector"
	"droidlink/internal/discovery"
	"droidlink/internal/logger"
	"droidlink/internal/mirror"
	"droidlink/internal/prompt"
	"droidlink/internal/reporting"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "droidlink",
		Short: "Find an Android device on the LAN and mirror it over wireless adb",
		Long: `droidlink looks for a device reachable for wireless debugging, in order:
  1. an adb session already bound to the port
  2. the address the USB-attached device reports in its routing table
  3. hosts in the local neighbor table
  4. every host of the configured /24
  5. an address typed in by hand

If no session exists yet it switches the USB-attached device to TCP/IP mode,
reconnects over the network and starts scrcpy against the endpoint.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./droidlink.yaml or ~/.config/droidlink/droidlink.yaml)")
	flags.Int("port", 0, "wireless debugging port (default 5555)")
	flags.String("subnet", "", "IPv4 /24 to probe when nothing else works (default 192.168.1.0/24)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("adb", "", "path to the adb binary")
	flags.String("scrcpy", "", "path to the scrcpy binary")
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] droidlink crashed unexpectedly: %v\n", r)
			code = 1
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(diagnostic(err))
		return 1
	}
	return 0
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader(cfgFile)
	v := loader.Viper()
	flags := cmd.Flags()

	for key, name := range map[string]string{
		"port":        "port",
		"subnet":      "subnet",
		"log.level":   "log-level",
		"adb.path":    "adb",
		"mirror.path": "scrcpy",
	} {
		// Only explicitly set flags override file and env values.
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return loader.Load()
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := connector.CheckTools(nil, cfg.ADB.Path, cfg.Mirror.Path); err != nil {
		return err
	}

	conn := buildConnector(cfg, log)

	pterm.Info.Printfln("Looking for a device on port %d", cfg.Port)
	res, err := conn.Resolve(ctx)

	endpoint := ""
	if err == nil {
		endpoint = res.Endpoint.String()
	}
	if err != nil || log.Logger.IsLevelEnabled(logrus.InfoLevel) {
		_ = reporting.WriteSummary(os.Stderr, res.Attempts, endpoint)
	}
	if err != nil {
		return err
	}

	if res.Upgraded {
		pterm.Success.Printfln("Switched %s to wireless, connected to %s", res.USBSerial, endpoint)
	} else {
		pterm.Success.Printfln("Connected to %s (%s)", endpoint, res.Method)
	}
	pterm.Info.Printfln("Starting %s", cfg.Mirror.Path)

	return conn.Launch(ctx, res.Endpoint)
}

func buildConnector(cfg *config.Config, log *logrus.Entry) *connector.Connector {
	cli := adb.NewCLI(cfg.ADB.Path, cfg.ADB.Timeout, log)

	var bridge adb.Bridge = cli
	if cfg.ADB.Backend == config.BackendServer {
		server, err := adb.NewServerBridge(cfg.ADB.ServerHost, cfg.ADB.ServerPort, cli)
		if err != nil {
			log.WithError(err).Warn("adb server backend unavailable, using the adb binary")
		} else {
			bridge = server
		}
	}

	table := discovery.NewNeighborTable(log)
	var neighbors discovery.NeighborSource = table
	if cfg.Neighbor.Sweep {
		neighbors = &discovery.SweepingSource{
			Table:     table,
			Interface: cfg.Neighbor.Interface,
			Log:       log,
		}
	}

	term := &prompt.Terminal{
		Validate: func(s string) error {
			_, err := discovery.ParseManual(s, cfg.Port)
			return err
		},
	}

	locator := &discovery.Locator{
		Bridge:    bridge,
		Port:      cfg.Port,
		Subnet:    cfg.SubnetPrefix(),
		Neighbors: neighbors,
		Prober:    discovery.NewTCPProber(cfg.Scan.DialTimeout),
		Prompt:    term,
		Log:       log,
	}

	return &connector.Connector{
		Bridge:  bridge,
		Locator: locator,
		Confirm: term,
		Mirror: &mirror.Launcher{
			Path: cfg.Mirror.Path,
			Args: cfg.Mirror.Args,
			Log:  log,
		},
		Options: connector.Options{
			SettleDelay:       cfg.Wireless.SettleDelay,
			Attempts:          cfg.Wireless.Attempts,
			Backoff:           cfg.Wireless.Backoff,
			SkipWhenConnected: cfg.Wireless.SkipWhenConnected,
		},
		Log: log,
	}
}

// diagnostic turns a terminal error into the one line shown to the user.
func diagnostic(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	case errors.Is(err, connector.ErrToolMissing):
		return fmt.Sprintf("Missing required tool: %v", err)
	case errors.Is(err, connector.ErrNoEndpoint):
		return "No device address found or entered"
	case errors.Is(err, connector.ErrUSBDeviceNotFound):
		return "No USB device detected. Connect the device and enable USB debugging"
	case errors.Is(err, connector.ErrModeSwitchFailed):
		return fmt.Sprintf("Could not switch the device to TCP/IP mode: %v", err)
	case errors.Is(err, connector.ErrRetryExhausted):
		return fmt.Sprintf("Could not connect over Wi-Fi: %v", err)
	case errors.Is(err, connector.ErrMirrorLaunchFailed):
		return fmt.Sprintf("Screen mirroring failed: %v", err)
	default:
		return err.Error()
	}
}
