// Package config loads server configuration from a YAML file and
// TOWERCLASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TOWERCLASH_GAME_TOWER_HP.
const EnvPrefix = "TOWERCLASH"

// energyCap mirrors the rules ceiling enforced by the match engine.
const energyCap = 10

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Game      GameConfig      `mapstructure:"game"`
	AI        AIConfig        `mapstructure:"ai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Replay    ReplayConfig    `mapstructure:"replay"`
}

// ServerConfig groups the network listeners.
type ServerConfig struct {
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

// WebSocketConfig configures the client transport.
type WebSocketConfig struct {
	Address        string        `mapstructure:"address"`
	Path           string        `mapstructure:"path"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the health service listener.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds the match rules.
type GameConfig struct {
	CatalogPath    string `mapstructure:"catalog_path"`
	StartingEnergy int    `mapstructure:"starting_energy"`
	MaxEnergy      int    `mapstructure:"max_energy"`
	HandSize       int    `mapstructure:"hand_size"`
	TowerHP        int    `mapstructure:"tower_hp"`
	DeckCopies     int    `mapstructure:"deck_copies"`
	Seed           int64  `mapstructure:"seed"`
}

// AIConfig tunes the computer opponent.
type AIConfig struct {
	Name          string        `mapstructure:"name"`
	ThinkDelay    time.Duration `mapstructure:"think_delay"`
	ContinueDelay time.Duration `mapstructure:"continue_delay"`
}

// StorageConfig selects the match-result store.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// ReplayConfig enables replay files when Dir is set.
type ReplayConfig struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.ping_interval", 30*time.Second)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.read_limit", 64*1024)
	v.SetDefault("server.websocket.send_buffer", 256)
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.grpc.enabled", true)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.catalog_path", "")
	v.SetDefault("game.starting_energy", 10)
	v.SetDefault("game.max_energy", 10)
	v.SetDefault("game.hand_size", 5)
	v.SetDefault("game.tower_hp", 50)
	v.SetDefault("game.deck_copies", 2)
	v.SetDefault("game.seed", 0)

	v.SetDefault("ai.name", "AI")
	v.SetDefault("ai.think_delay", time.Second)
	v.SetDefault("ai.continue_delay", 500*time.Millisecond)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "towerclash-server")

	v.SetDefault("replay.dir", "")
}

// Load reads path (a missing file means defaults), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.WebSocket.Address) == "" {
		errs = append(errs, fmt.Errorf("server.websocket.address is required"))
	}
	if !strings.HasPrefix(c.Server.WebSocket.Path, "/") {
		errs = append(errs, fmt.Errorf("server.websocket.path must start with /"))
	}
	if c.Server.WebSocket.PingInterval <= 0 || c.Server.WebSocket.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.websocket timings must be positive"))
	}
	if c.Server.GRPC.Enabled && strings.TrimSpace(c.Server.GRPC.Address) == "" {
		errs = append(errs, fmt.Errorf("server.grpc.address is required when enabled"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	g := c.Game
	if g.MaxEnergy <= 0 || g.MaxEnergy > energyCap {
		errs = append(errs, fmt.Errorf("game.max_energy must be between 1 and %d", energyCap))
	}
	if g.StartingEnergy < 0 || g.StartingEnergy > g.MaxEnergy {
		errs = append(errs, fmt.Errorf("game.starting_energy must be between 0 and game.max_energy"))
	}
	if g.HandSize <= 0 {
		errs = append(errs, fmt.Errorf("game.hand_size must be positive"))
	}
	if g.TowerHP <= 0 {
		errs = append(errs, fmt.Errorf("game.tower_hp must be positive"))
	}
	if g.DeckCopies <= 0 {
		errs = append(errs, fmt.Errorf("game.deck_copies must be positive"))
	}

	if c.AI.ThinkDelay < 0 || c.AI.ContinueDelay < 0 {
		errs = append(errs, fmt.Errorf("ai delays must not be negative"))
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %s", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be memory, postgres or sqlite", c.Storage.Driver))
	}

	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("telemetry.endpoint is required when enabled"))
	}

	return errors.Join(errs...)
}
