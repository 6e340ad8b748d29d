// Package injector wires configuration, logging, the game and the server
// into one runnable App.
package injector

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"github.com/google/wire"

	"github.com/zeusync/contentpack/internal/config"
	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/core/protocol/quic"
	"github.com/zeusync/contentpack/internal/core/protocol/websocket"
	"github.com/zeusync/contentpack/internal/game"
	"github.com/zeusync/contentpack/internal/server"
)

// ProviderSet builds an App from a config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideGameOptions,
	game.New,
	ProvideServerConfig,
	server.New,
	ProvideEndpoints,
	wire.Struct(new(App), "*"),
)

// Endpoint is one transport and the address it listens on.
type Endpoint struct {
	Transport protocol.Transport
	Addr      string
}

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	opts, err := cfg.LogOptions()
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(opts)
}

// ProvideGameOptions points the game at the embedded resources unless a
// directory on disk overrides them.
func ProvideGameOptions(cfg config.Config) game.Options {
	opts := game.Options{
		MapPath:  cfg.Resources.Map,
		TickRate: cfg.Simulation.TickRate,
		Locale:   cfg.Locale,
	}
	if cfg.Resources.Dir != "" {
		opts.Resources = os.DirFS(cfg.Resources.Dir)
	}
	return opts
}

func ProvideServerConfig(cfg config.Config) server.Config {
	return server.Config{
		PingInterval:   cfg.Server.PingInterval,
		ActorPrototype: cfg.Server.ActorPrototype,
		SpawnMap:       ecs.MapID(cfg.Server.SpawnMap),
		Admin:          cfg.Server.Admin,
		AdminToken:     cfg.Server.AdminToken,
		SendQueue:      cfg.Server.SendQueue,
	}
}

// ProvideEndpoints builds the enabled transports. QUIC without a
// certificate pair gets a self-signed one.
func ProvideEndpoints(cfg config.Config, logger log.Log) ([]Endpoint, error) {
	limits := cfg.TransportConfig()
	var out []Endpoint
	for _, name := range cfg.Server.Transports {
		switch strings.TrimSpace(name) {
		case "websocket":
			out = append(out, Endpoint{
				Transport: websocket.NewTransport(limits, logger),
				Addr:      cfg.Server.WebsocketAddr,
			})
		case "quic":
			var (
				serverTLS *tls.Config
				err       error
			)
			if cfg.Server.CertFile != "" {
				serverTLS, err = quic.LoadTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
			} else {
				logger.Warn("no certificate configured, using a self-signed one for quic")
				serverTLS, err = quic.GenerateSelfSignedTLS()
			}
			if err != nil {
				return nil, fmt.Errorf("quic tls: %w", err)
			}
			out = append(out, Endpoint{
				Transport: quic.NewTransport(limits, serverTLS, nil, logger),
				Addr:      cfg.Server.QuicAddr,
			})
		default:
			return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownTransport, name)
		}
	}
	return out, nil
}
