// Package config loads server configuration: defaults, then an optional YAML
// file, then CP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CP_"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
	Simulation SimulationConfig `yaml:"simulation" envPrefix:"SIM_"`
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Protocol   ProtocolConfig   `yaml:"protocol" envPrefix:"PROTOCOL_"`
	Resources  ResourcesConfig  `yaml:"resources" envPrefix:"RESOURCES_"`
	Locale     string           `yaml:"locale" env:"LOCALE"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"LEVEL"`
	Format      string `yaml:"format" env:"FORMAT"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
}

type SimulationConfig struct {
	TickRate int `yaml:"tickRate" env:"TICK_RATE"`
}

type ServerConfig struct {
	// Transports lists the enabled transports, "websocket" and/or "quic".
	Transports    []string      `yaml:"transports" env:"TRANSPORTS" envSeparator:","`
	WebsocketAddr string        `yaml:"websocketAddr" env:"WEBSOCKET_ADDR"`
	QuicAddr      string        `yaml:"quicAddr" env:"QUIC_ADDR"`
	CertFile      string        `yaml:"certFile" env:"CERT_FILE"`
	KeyFile       string        `yaml:"keyFile" env:"KEY_FILE"`
	PingInterval  time.Duration `yaml:"pingInterval" env:"PING_INTERVAL"`
	Admin         bool          `yaml:"admin" env:"ADMIN"`
	// AdminToken, when set, must be presented in hello for admin requests.
	AdminToken string `yaml:"adminToken" env:"ADMIN_TOKEN"`
	// StatusAddr serves /status and /health over HTTP. Empty disables it.
	StatusAddr string `yaml:"statusAddr" env:"STATUS_ADDR"`
	SendQueue  int    `yaml:"sendQueue" env:"SEND_QUEUE"`
	// ActorPrototype is spawned for every session that says hello.
	ActorPrototype string `yaml:"actorPrototype" env:"ACTOR_PROTOTYPE"`
	SpawnMap       uint32 `yaml:"spawnMap" env:"SPAWN_MAP"`
}

type ProtocolConfig struct {
	MaxMessageSize int           `yaml:"maxMessageSize" env:"MAX_MESSAGE_SIZE"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	QueueSize      int           `yaml:"queueSize" env:"QUEUE_SIZE"`
}

type ResourcesConfig struct {
	// Dir overrides the embedded resources with a directory on disk.
	Dir string `yaml:"dir" env:"DIR"`
	Map string `yaml:"map" env:"MAP"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	p := protocol.DefaultConfig()
	return Config{
		Log:        LogConfig{Level: "info", Format: "json"},
		Simulation: SimulationConfig{TickRate: 30},
		Server: ServerConfig{
			Transports:     []string{"websocket"},
			WebsocketAddr:  ":8080",
			QuicAddr:       ":8443",
			PingInterval:   5 * time.Second,
			ActorPrototype: "MobHuman",
			SpawnMap:       1,
			SendQueue:      256,
		},
		Protocol: ProtocolConfig{
			MaxMessageSize: p.MaxMessageSize,
			WriteTimeout:   p.WriteTimeout,
			QueueSize:      p.QueueSize,
		},
		Resources: ResourcesConfig{Map: "maps/station.yml"},
		Locale:    "en-US",
	}
}

// Load builds the configuration. path may be empty to skip the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the CP_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json or console", c.Log.Format))
	}
	if c.Simulation.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tickRate must be positive, got %d", c.Simulation.TickRate))
	}
	if len(c.Server.Transports) == 0 {
		errs = append(errs, errors.New("server.transports is empty"))
	}
	for _, name := range c.Server.Transports {
		switch strings.TrimSpace(name) {
		case "websocket":
			if c.Server.WebsocketAddr == "" {
				errs = append(errs, errors.New("server.websocketAddr is required"))
			}
		case "quic":
			if c.Server.QuicAddr == "" {
				errs = append(errs, errors.New("server.quicAddr is required"))
			}
			if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
				errs = append(errs, errors.New("server.certFile and server.keyFile go together"))
			}
		default:
			errs = append(errs, fmt.Errorf("server.transports: %q: %w", name, protocol.ErrUnknownTransport))
		}
	}
	if c.Server.PingInterval <= 0 {
		errs = append(errs, errors.New("server.pingInterval must be positive"))
	}
	if c.Server.ActorPrototype == "" {
		errs = append(errs, errors.New("server.actorPrototype is required"))
	}
	if c.Server.SendQueue <= 0 {
		errs = append(errs, errors.New("server.sendQueue must be positive"))
	}
	if c.Server.AdminToken != "" && !c.Server.Admin {
		errs = append(errs, errors.New("server.adminToken is set but admin is disabled"))
	}
	if c.Protocol.MaxMessageSize < 0 || c.Protocol.QueueSize < 0 || c.Protocol.WriteTimeout < 0 {
		errs = append(errs, errors.New("protocol limits must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// LogOptions maps the log section onto logger options.
func (c Config) LogOptions() (log.Options, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.Options{}, err
	}
	return log.Options{Level: level, Encoding: c.Log.Format, Development: c.Log.Development}, nil
}

// TransportConfig returns the transport limits, defaults filled in.
func (c Config) TransportConfig() protocol.Config {
	return protocol.Config{
		MaxMessageSize: c.Protocol.MaxMessageSize,
		WriteTimeout:   c.Protocol.WriteTimeout,
		QueueSize:      c.Protocol.QueueSize,
	}.Normalize()
}

// TickInterval is the duration of one simulation tick.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Simulation.TickRate)
}
