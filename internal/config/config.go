package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode              string        `mapstructure:"mode"`
	Host              string        `mapstructure:"host"`
	ControlPort       int           `mapstructure:"control_port"`
	AdminAddr         string        `mapstructure:"admin_addr"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxFrameBytes     int           `mapstructure:"max_frame_bytes"`
	MaxDatagramBytes  int           `mapstructure:"max_datagram_bytes"`
	MixInterval       time.Duration `mapstructure:"mix_interval"`
	AudioChunkSamples int           `mapstructure:"audio_chunk_samples"`
	AudioSampleRate   int           `mapstructure:"audio_sample_rate"`
	SendQueue         int           `mapstructure:"send_queue"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MessagesPerSecond float64       `mapstructure:"messages_per_second"`
	MessageBurst      int           `mapstructure:"message_burst"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	WSReadLimit       int64         `mapstructure:"ws_read_limit"`
	RosterSync        time.Duration `mapstructure:"roster_sync_interval"`
}

// MediaPort is the UDP port, always the one after the control port.
func (c *Config) MediaPort() int { return c.ControlPort + 1 }

func (c *Config) ControlAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.ControlPort) }

func (c *Config) MediaAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.MediaPort()) }

func (c *Config) validate() error {
	if c.ControlPort < 1 || c.ControlPort > 65534 {
		return fmt.Errorf("control_port %d out of range 1-65534", c.ControlPort)
	}
	if c.Mode != "release" && c.Mode != "debug" {
		return fmt.Errorf("mode %q: want release or debug", c.Mode)
	}
	if c.MixInterval <= 0 {
		return errors.New("mix_interval must be positive")
	}
	if c.AudioChunkSamples <= 0 {
		return errors.New("audio_chunk_samples must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("control_port", 65435)
	v.SetDefault("admin_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_frame_bytes", 64<<20)
	v.SetDefault("max_datagram_bytes", 65507)
	v.SetDefault("mix_interval", "20ms")
	v.SetDefault("audio_chunk_samples", 2048)
	v.SetDefault("audio_sample_rate", 22050)
	v.SetDefault("send_queue", 256)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("messages_per_second", 0)
	v.SetDefault("message_burst", 50)
	v.SetDefault("shutdown_timeout", "2s")
	v.SetDefault("ws_read_limit", 0)
	v.SetDefault("roster_sync_interval", "0s")
}

func flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("confrelay", pflag.ContinueOnError)
	fs.String("config", "", "config file (default config/config.<CONFIG_ENV>.yaml)")
	fs.String("mode", "release", "gin mode: release or debug")
	fs.String("host", "0.0.0.0", "listen host for control and media ports")
	fs.Int("control-port", 65435, "TCP control port; media uses the next port")
	fs.String("admin-addr", ":8080", "admin HTTP listen address, empty disables it")
	fs.String("log-level", "info", "zerolog level")
	return fs
}

// Load reads the config file chosen by --config or CONFIG_ENV, then applies
// RELAY_* environment variables and finally command-line flags.
func Load(args []string) (*Config, error) {
	fs := flags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	fileName, _ := fs.GetString("config")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"mode", "host", "control-port", "admin-addr", "log-level"} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not loaded, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WSReadLimit <= 0 {
		cfg.WSReadLimit = int64(cfg.MaxFrameBytes)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("control", cfg.ControlAddr()).
		Str("media", cfg.MediaAddr()).Str("admin", cfg.AdminAddr).Msg("config ready")
	return &cfg, nil
}
