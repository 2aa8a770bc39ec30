package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/minerdriver/internal/device"
	"codeberg.org/mutker/minerdriver/internal/errors"
	"codeberg.org/mutker/minerdriver/internal/forwarder"
	"codeberg.org/mutker/minerdriver/internal/logger"
	"codeberg.org/mutker/minerdriver/internal/metrics"
	"codeberg.org/mutker/minerdriver/internal/scheduler"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile       = "config.json"
	DefaultEnvPrefix        = "MINERDRIVER"
	DefaultLogLevel         = "info"
	DefaultProbingDelay     = 60
	DefaultSettleOffset     = 5
	DefaultDeviceTimeout    = 10
	DefaultForwardTimeoutMS = 800
	defaultPIDFile          = "minerdriver.pid"
)

type Database struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	AuthScheme string `mapstructure:"auth_scheme"`
}

type Miner struct {
	IP    string `mapstructure:"ip"`
	Port  int    `mapstructure:"port"`
	Index string `mapstructure:"index"`
}

type Config struct {
	ConfigFile       string   `mapstructure:"config"`
	Output           string   `mapstructure:"output"`
	Database         Database `mapstructure:"database"`
	Miners           []Miner  `mapstructure:"miners"`
	ProbingDelay     int      `mapstructure:"probing_delay"`
	SettleOffset     int      `mapstructure:"settle_offset"`
	DeviceTimeout    int      `mapstructure:"device_timeout"`
	ForwardTimeoutMS int      `mapstructure:"forward_timeout_ms"`
	MaxReplyBytes    int      `mapstructure:"max_reply_bytes"`
	LogLevel         string   `mapstructure:"log_level"`
	MetricsAddress   string   `mapstructure:"metrics_address"`
	PIDFile          string   `mapstructure:"pid_file"`
}

// Load reads the configuration. Precedence, lowest first: defaults, the
// configuration file, the environment, flags.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		args:      os.Args[1:],
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("minerdriver", pflag.ContinueOnError)
	flags.StringP("config", "c", DefaultConfigFile, "Path to the configuration file")
	flags.StringP("output", "o", "", "Append log output to this file instead of stdout")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.String("metrics-address", "", "Serve Prometheus metrics on this address")
	flags.Int("probing-delay", DefaultProbingDelay, "Seconds between polling cycles")
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	for key, flag := range map[string]string{
		"config":          "config",
		"output":          "output",
		"log_level":       "log-level",
		"metrics_address": "metrics-address",
		"probing_delay":   "probing-delay",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := o.configPath
	if path == "" {
		path = v.GetString("config")
	}
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	cfg.ConfigFile = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.auth_scheme", forwarder.DefaultScheme)
	v.SetDefault("probing_delay", DefaultProbingDelay)
	v.SetDefault("settle_offset", DefaultSettleOffset)
	v.SetDefault("device_timeout", DefaultDeviceTimeout)
	v.SetDefault("forward_timeout_ms", DefaultForwardTimeoutMS)
	v.SetDefault("max_reply_bytes", device.DefaultMaxReplyBytes)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pid_file", filepath.Join(os.TempDir(), defaultPIDFile))
}

// Roster returns the device descriptors in configuration order.
func (c *Config) Roster() []device.Descriptor {
	roster := make([]device.Descriptor, len(c.Miners))
	for i, m := range c.Miners {
		roster[i] = device.Descriptor{Address: m.IP, Port: m.Port, Identity: m.Index}
	}
	return roster
}

func (c *Config) Device() device.Config {
	return device.Config{
		Timeout:       time.Duration(c.DeviceTimeout) * time.Second,
		MaxReplyBytes: c.MaxReplyBytes,
	}
}

func (c *Config) Forwarder() forwarder.Config {
	return forwarder.Config{
		BaseURL:    c.Database.Address,
		Credential: forwarder.NewCredential(c.Database.AuthScheme, c.Database.Token),
		Timeout:    time.Duration(c.ForwardTimeoutMS) * time.Millisecond,
	}
}

func (c *Config) Scheduler() scheduler.Config {
	return scheduler.Config{
		Cadence:      time.Duration(c.ProbingDelay) * time.Second,
		SettleOffset: time.Duration(c.SettleOffset) * time.Second,
	}
}

func (c *Config) Metrics() metrics.Config {
	return metrics.Config{Address: c.MetricsAddress}
}

// Level returns the logger level for LogLevel.
func (c *Config) Level() logger.LogLevel {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}
