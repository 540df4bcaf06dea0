package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/brimoraa/plpchat/internal/logging"
)

type Config struct {
	Server   ServerConfig
	Live     LiveConfig
	Typing   TypingConfig
	Presence PresenceConfig
	Storage  StorageConfig
	Log      logging.Config
}

type ServerConfig struct {
	URL     string
	Timeout time.Duration
}

type LiveConfig struct {
	URL            string
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendRate       float64       `mapstructure:"send_rate"`
	SendBurst      int           `mapstructure:"send_burst"`
}

type TypingConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type PresenceConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type StorageConfig struct {
	Backend string
	Dir     string
}

// HomeDir returns ~/.plpchat, the default location for state, logs and config.
func HomeDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".plpchat")
}

// Load reads configuration from .env, the config file and PLPCHAT_* variables.
// configFile may be empty, in which case config.yaml is searched in
// ~/.plpchat and the working directory.
func Load(configFile string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(HomeDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("plpchat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Server.Timeout = parseDuration(v, "server.timeout", 15*time.Second)
	cfg.Live.ReconnectDelay = parseDuration(v, "live.reconnect_delay", 2*time.Second)
	cfg.Live.PingInterval = parseDuration(v, "live.ping_interval", 30*time.Second)
	cfg.Live.PongWait = parseDuration(v, "live.pong_wait", 60*time.Second)
	cfg.Live.WriteWait = parseDuration(v, "live.write_wait", 10*time.Second)
	cfg.Typing.IdleTimeout = parseDuration(v, "typing.idle_timeout", 2*time.Second)
	cfg.Presence.RefreshInterval = parseDuration(v, "presence.refresh_interval", time.Minute)

	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	if cfg.Live.URL == "" {
		cfg.Live.URL = deriveLiveURL(cfg.Server.URL)
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:5000/api")
	v.SetDefault("server.timeout", "15s")
	v.SetDefault("live.url", "")
	v.SetDefault("live.reconnect_delay", "2s")
	v.SetDefault("live.max_retries", 5)
	v.SetDefault("live.ping_interval", "30s")
	v.SetDefault("live.pong_wait", "60s")
	v.SetDefault("live.write_wait", "10s")
	v.SetDefault("live.max_message_size", 1<<20)
	v.SetDefault("live.send_rate", 20)
	v.SetDefault("live.send_burst", 10)
	v.SetDefault("typing.idle_timeout", "2s")
	v.SetDefault("presence.refresh_interval", "60s")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dir", HomeDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", filepath.Join(HomeDir(), "plpchat.log"))
}

func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	switch c.Storage.Backend {
	case "sqlite", "yaml":
	default:
		return fmt.Errorf("unknown storage.backend %q (want sqlite or yaml)", c.Storage.Backend)
	}
	if c.Live.MaxRetries < 0 {
		return fmt.Errorf("live.max_retries must not be negative")
	}
	if c.Typing.IdleTimeout <= 0 {
		return fmt.Errorf("typing.idle_timeout must be positive")
	}
	return nil
}

// deriveLiveURL maps http://host/api to ws://host/ws.
func deriveLiveURL(serverURL string) string {
	u := serverURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	u = strings.TrimSuffix(u, "/api")
	return u + "/ws"
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
	}
	return p
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
