package quic

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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverTLS, err := GenerateSelfSignedTLS()
	require.NoError(t, err)
	tr := NewTransport(protocol.DefaultConfig(), serverTLS, ClientTLS(true), log.NewNop())
	assert.Equal(t, "quic", tr.Name())

	ln, err := tr.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	client, err := tr.Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer server.Close()

	ping, err := protocol.NewEnvelope(protocol.KindPing, protocol.Ping{SentUnixNano: 42})
	require.NoError(t, err)
	require.NoError(t, server.Send(ctx, ping))

	got, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindPing, got.Kind)
	var p protocol.Ping
	require.NoError(t, got.DecodePayload(&p))
	assert.Equal(t, int64(42), p.SentUnixNano)

	pong, err := got.Reply(protocol.KindPong, p)
	require.NoError(t, err)
	require.NoError(t, client.Send(ctx, pong))
	got, err = server.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindPong, got.Kind)
}

func TestListenRequiresServerTLS(t *testing.T) {
	tr := NewTransport(protocol.Config{}, nil, nil, nil)
	_, err := tr.Listen(context.Background(), "127.0.0.1:0")
	assert.Error(t, err)
}
