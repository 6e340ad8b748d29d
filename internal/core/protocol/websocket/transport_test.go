package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

func TestLoopback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := protocol.DefaultConfig()
	cfg.MaxMessageSize = 512
	tr := NewTransport(cfg, log.NewNop())
	assert.Equal(t, "websocket", tr.Name())

	ln, err := tr.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	client, err := tr.Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer server.Close()

	hello, err := protocol.NewEnvelope(protocol.KindHello, protocol.Hello{Name: "ada"})
	require.NoError(t, err)
	require.NoError(t, client.Send(ctx, hello))

	got, err := server.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindHello, got.Kind)

	reply, err := got.Reply(protocol.KindWelcome, protocol.Welcome{Session: "s1", Actor: 4})
	require.NoError(t, err)
	require.NoError(t, server.Send(ctx, reply))
	got, err = client.Receive(ctx)
	require.NoError(t, err)
	var w protocol.Welcome
	require.NoError(t, got.DecodePayload(&w))
	assert.Equal(t, uint64(4), w.Actor)

	big, err := protocol.NewEnvelope(protocol.KindError, protocol.Error{Message: string(make([]byte, 1024))})
	require.NoError(t, err)
	assert.ErrorIs(t, client.Send(ctx, big), protocol.ErrMessageTooLarge)

	require.NoError(t, client.Close())
	_, err = server.Receive(ctx)
	assert.ErrorIs(t, err, protocol.ErrConnectionClosed)
	assert.ErrorIs(t, client.Send(ctx, hello), protocol.ErrConnectionClosed)
}

func TestAcceptAfterClose(t *testing.T) {
	tr := NewTransport(protocol.Config{}, nil)
	ln, err := tr.Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	_, err = ln.Accept(context.Background())
	assert.ErrorIs(t, err, protocol.ErrListenerClosed)
}
