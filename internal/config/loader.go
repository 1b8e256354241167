package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DROIDLINK_WIRELESS_ATTEMPTS.
const EnvPrefix = "DROIDLINK"

// Loader layers defaults, an optional YAML file, environment variables and
// any flags bound to its viper instance.
type Loader struct {
	configFile string
	viper      *viper.Viper
}

// NewLoader creates a loader. configFile may be empty, in which case the
// usual locations are searched and a missing file is not an error.
func NewLoader(configFile string) *Loader {
	return &Loader{
		configFile: configFile,
		viper:      viper.New(),
	}
}

// Viper exposes the underlying instance so commands can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.viper
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	v := l.viper
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := l.readFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) readFile() error {
	v := l.viper
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("droidlink")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "droidlink"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 5555)
	v.SetDefault("subnet", "192.168.1.0/24")

	v.SetDefault("scan.dial_timeout", "300ms")

	v.SetDefault("neighbor.sweep", false)
	v.SetDefault("neighbor.interface", "")

	v.SetDefault("wireless.settle_delay", "2s")
	v.SetDefault("wireless.attempts", 5)
	v.SetDefault("wireless.backoff", "2s")
	v.SetDefault("wireless.skip_when_connected", false)

	v.SetDefault("adb.path", "adb")
	v.SetDefault("adb.backend", BackendCLI)
	v.SetDefault("adb.server_host", "127.0.0.1")
	v.SetDefault("adb.server_port", 5037)
	v.SetDefault("adb.timeout", "10s")

	v.SetDefault("mirror.path", "scrcpy")
	v.SetDefault("mirror.args", []string{})

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.caller", false)
}
