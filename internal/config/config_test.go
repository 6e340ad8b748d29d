package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Second/30, cfg.TickInterval())
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
  format: console
simulation:
  tickRate: 60
server:
  transports: [websocket, quic]
  pingInterval: 2s
  admin: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 60, cfg.Simulation.TickRate)
	assert.Equal(t, []string{"websocket", "quic"}, cfg.Server.Transports)
	assert.Equal(t, 2*time.Second, cfg.Server.PingInterval)
	assert.True(t, cfg.Server.Admin)
	// untouched keys keep their defaults
	assert.Equal(t, ":8080", cfg.Server.WebsocketAddr)
	assert.Equal(t, "MobHuman", cfg.Server.ActorPrototype)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "simulation:\n  tickRate: 60\n")
	t.Setenv("CP_SIM_TICK_RATE", "20")
	t.Setenv("CP_SERVER_TRANSPORTS", "quic,websocket")
	t.Setenv("CP_SERVER_WEBSOCKET_ADDR", "127.0.0.1:9000")
	t.Setenv("CP_PROTOCOL_MAX_MESSAGE_SIZE", "4096")
	t.Setenv("CP_LOCALE", "ru-RU")
	t.Setenv("CP_SERVER_ADMIN", "true")
	t.Setenv("CP_SERVER_ADMIN_TOKEN", "s3cret")
	t.Setenv("CP_SERVER_STATUS_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Simulation.TickRate)
	assert.Equal(t, []string{"quic", "websocket"}, cfg.Server.Transports)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.WebsocketAddr)
	assert.Equal(t, 4096, cfg.TransportConfig().MaxMessageSize)
	assert.Equal(t, "ru-RU", cfg.Locale)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
	assert.Equal(t, ":9090", cfg.Server.StatusAddr)
}

func TestMalformedEnv(t *testing.T) {
	t.Setenv("CP_SIM_TICK_RATE", "fast")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero tick rate", func(c *Config) { c.Simulation.TickRate = 0 }},
		{"no transports", func(c *Config) { c.Server.Transports = nil }},
		{"unknown transport", func(c *Config) { c.Server.Transports = []string{"carrier-pigeon"} }},
		{"half tls pair", func(c *Config) {
			c.Server.Transports = []string{"quic"}
			c.Server.CertFile = "cert.pem"
		}},
		{"zero ping", func(c *Config) { c.Server.PingInterval = 0 }},
		{"no actor", func(c *Config) { c.Server.ActorPrototype = "" }},
		{"zero send queue", func(c *Config) { c.Server.SendQueue = 0 }},
		{"token without admin", func(c *Config) { c.Server.AdminToken = "x" }},
		{"negative queue", func(c *Config) { c.Protocol.QueueSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Server.Transports = []string{"carrier-pigeon"}
	assert.ErrorIs(t, cfg.Validate(), protocol.ErrUnknownTransport)
}

func TestLogOptions(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "console"
	opts, err := cfg.LogOptions()
	require.NoError(t, err)
	assert.Equal(t, log.LevelWarn, opts.Level)
	assert.Equal(t, "console", opts.Encoding)
}
