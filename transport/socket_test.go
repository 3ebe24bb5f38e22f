package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangb/remotedev/request"
)

// loopback builds two connected in-memory sockets over a real TCP
// connection (net.Pipe does not support SetReadDeadline the way our
// Poll relies on).
func loopback(t *testing.T) (*Socket, *Socket) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		serverCh <- c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	serverConn := <-serverCh
	require.NotNil(t, serverConn)

	return NewSocket(clientConn), NewSocket(serverConn)
}

func TestSocketSendAndPollRoundTrip(t *testing.T) {
	a, b := loopback(t)
	defer a.Close()
	defer b.Close()

	req := &request.Request{Kind: request.KindFile, Action: request.ActionCreate, Src: "a.txt", Content: []byte("hi")}
	require.NoError(t, a.Send(req))

	var got []*request.Request
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(got) == 0 {
		reqs, err := b.Poll()
		require.NoError(t, err)
		got = append(got, reqs...)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "a.txt", got[0].Src)
	assert.Equal(t, []byte("hi"), got[0].Content)
}

func TestSocketHandshakeSucceeds(t *testing.T) {
	a, b := loopback(t)
	defer a.Close()
	defer b.Close()

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			reqs, _ := b.Poll()
			for _, r := range reqs {
				if r.Kind == request.KindPing {
					_ = b.Send(request.Pong())
					return
				}
			}
		}
	}()

	assert.NoError(t, a.Handshake())
}

func TestSocketHandshakeTimesOutWithoutPong(t *testing.T) {
	a, b := loopback(t)
	defer a.Close()
	defer b.Close()
	_ = b

	err := a.Handshake()
	assert.Error(t, err)
}

func TestSocketPollReportsLostConnectionAfterEmptyReads(t *testing.T) {
	a, b := loopback(t)
	defer a.Close()
	defer b.Close()
	_ = b

	var err error
	for i := 0; i < MaxEmptyReads; i++ {
		_, err = a.Poll()
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrLostConnection)
}
