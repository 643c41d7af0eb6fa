package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brawl/internal/protocol"
	"brawl/internal/transport"
)

func TestConn_FrameRoundTrip(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	t.Logf("server started on %q", ln.Addr())

	go func() {
		server, err := ln.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		defer func() { _ = server.Close() }()

		scope, body, err := server.Receive()
		if err != nil {
			t.Error(err)
			return
		}
		if scope != protocol.ScopeInput {
			t.Errorf("expected scope %d; actual scope %d", protocol.ScopeInput, scope)
		}
		// echo back under a different scope
		err = server.Send(protocol.ScopeSnapshot, body)
		if err != nil {
			t.Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := transport.Dial(ctx, ln.Addr())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	in := protocol.Input{Tick: 12}
	body, err := in.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, client.Send(protocol.ScopeInput, body))

	scope, echoed, err := client.Receive()
	require.NoError(t, err)
	assert.Equal(t, protocol.ScopeSnapshot, scope)
	assert.Equal(t, body, echoed)
}

func TestMux_RoutesScopesAndMeasuresPing(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	go func() {
		server, err := ln.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		defer func() { _ = server.Close() }()

		for {
			scope, body, err := server.Receive()
			if err != nil {
				return
			}
			switch scope {
			case protocol.ScopePing:
				_ = server.Send(protocol.ScopePong, body)
			case protocol.ScopeJoin:
				_ = server.Send(protocol.ScopeSnapshot, []byte{0, 0, 0, 9, 0, 0, 0, 0})
				_ = server.Send(protocol.ScopeGameOver, nil)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := transport.Dial(ctx, ln.Addr())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	mux := transport.NewMux(client)
	snapshotCh := mux.Subscribe(protocol.ScopeSnapshot, 1)
	gameOverCh := mux.Subscribe(protocol.ScopeGameOver, 1)
	go mux.Run(t.Logf)

	ping := protocol.Ping{SentAt: time.Now().UnixNano()}
	pingBody, err := ping.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, client.Send(protocol.ScopePing, pingBody))
	require.NoError(t, client.Send(protocol.ScopeJoin, nil))

	select {
	case body := <-snapshotCh:
		assert.Equal(t, []byte{0, 0, 0, 9, 0, 0, 0, 0}, body)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	select {
	case <-gameOverCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no game over delivered")
	}

	// the pong was consumed by the mux and folded into RTT
	assert.Eventually(t, func() bool {
		return client.RTT() > 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConn_SendAfterClose(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := transport.Dial(ctx, ln.Addr())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, errors.Is(client.Close(), transport.ErrClosed))
	assert.True(t, errors.Is(client.Send(protocol.ScopeInput, nil), transport.ErrClosed))
}
