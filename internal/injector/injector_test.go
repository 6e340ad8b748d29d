package injector

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/config"
	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/sdk/go/client"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Server.Transports = []string{"websocket", "quic"}
	cfg.Server.WebsocketAddr = "127.0.0.1:0"
	cfg.Server.QuicAddr = "127.0.0.1:0"
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestInitializeApp(t *testing.T) {
	app, err := InitializeApp(testConfig())
	require.NoError(t, err)
	require.Len(t, app.Endpoints, 2)
	assert.Equal(t, "websocket", app.Endpoints[0].Transport.Name())
	assert.Equal(t, "quic", app.Endpoints[1].Transport.Name())
	assert.NotNil(t, app.Game.Map)
}

func TestRunStopsWithContext(t *testing.T) {
	app, err := InitializeApp(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	assert.Eventually(t, func() bool { return app.Game.Loop.Tick() > 0 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunServesClients(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Transports = []string{"websocket"}
	cfg.Server.WebsocketAddr = freeAddr(t)
	app, err := InitializeApp(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	c := client.New(client.Config{ServerAddr: cfg.Server.WebsocketAddr, Name: "ada"}, protocol.NewRegistry(), nil)
	require.Eventually(t, func() bool { return c.Connect(ctx) == nil }, 3*time.Second, 50*time.Millisecond)
	defer c.Disconnect()

	entities, err := c.ListEntities(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, entities)
}

func TestListenFailureStopsRun(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Transports = []string{"websocket"}
	cfg.Server.WebsocketAddr = "256.0.0.1:80"
	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}

func TestProvideGameOptions(t *testing.T) {
	cfg := config.Default()
	opts := ProvideGameOptions(cfg)
	assert.Nil(t, opts.Resources)
	assert.Equal(t, "maps/station.yml", opts.MapPath)

	cfg.Resources.Dir = t.TempDir()
	assert.NotNil(t, ProvideGameOptions(cfg).Resources)
}

func TestProvideServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Admin = true
	cfg.Server.AdminToken = "s3cret"
	sc := ProvideServerConfig(cfg)
	assert.True(t, sc.Admin)
	assert.Equal(t, "s3cret", sc.AdminToken)
	assert.Equal(t, ecs.MapID(1), sc.SpawnMap)
	assert.Equal(t, 256, sc.SendQueue)
}

func TestProvideEndpointsUnknownTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Transports = []string{"pigeon"}
	_, err := ProvideEndpoints(cfg, log.NewNop())
	assert.ErrorIs(t, err, protocol.ErrUnknownTransport)
}
