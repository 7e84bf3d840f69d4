package peer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Mmx233/rvlink/client"
	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startServer serves on a loopback port until the test ends.
func startServer(t *testing.T, handler EventHandler, pingInterval time.Duration) (*Server, net.Addr) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Peer{PingInterval: pingInterval}
	cfg.ApplyDefaults(0)
	srv := New(cfg, handler, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error {
		return srv.Serve(ctx, ln)
	})
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, g.Wait())
	})

	return srv, ln.Addr()
}

func clientConfig(t *testing.T, addr net.Addr) config.Client {
	t.Helper()
	cfg := config.Client{
		Host:         "127.0.0.1",
		Port:         addr.(*net.TCPAddr).Port,
		Name:         "test",
		PollInterval: 20 * time.Millisecond,
	}
	require.NoError(t, cfg.ApplyDefaults())
	cfg.CloseGrace = time.Millisecond
	return cfg
}

func TestServer_EventWithReturn(t *testing.T) {
	router := NewRouter()
	router.Handle("echo", HandlerFunc(func(_ context.Context, ev *Event) (string, error) {
		return strings.ToUpper(ev.Contents()) + " from " + ev.Client(), nil
	}))
	srv, addr := startServer(t, router, 0)

	conn := client.New(clientConfig(t, addr), zerolog.Nop())
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	reply, err := conn.SendEvent(context.Background(), "echo", "hello world", true)
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD from test", reply)

	sessions := srv.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "test", sessions[0].Client)

	// handler errors and unknown events still get an empty RETURN
	reply, err = conn.SendEvent(context.Background(), "unknown", "x", true)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

// EVENT bodies reach the handler but, unlike RETURNEVENT, get no RETURN.
func TestServer_EventWithoutReturn(t *testing.T) {
	seen := make(chan *Event, 2)
	router := NewRouter()
	router.Handle("frame-changed", HandlerFunc(func(_ context.Context, ev *Event) (string, error) {
		seen <- ev
		return "ignored", nil
	}))
	_, addr := startServer(t, router, 0)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	r := bufio.NewReader(conn)

	require.NoError(t, protocol.WriteNewGreeting(conn, "raw"))
	require.NoError(t, protocol.WritePingPongControl(conn, false))
	frame, err := protocol.ReadFrame(r)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeGreeting, frame.Type)

	require.NoError(t, protocol.WriteMessage(conn, protocol.FormatEvent("frame-changed", "1001")))
	require.NoError(t, protocol.WriteMessage(conn, protocol.FormatReturnEvent("frame-changed", "1002")))

	for _, want := range []struct {
		contents    string
		wantsReturn bool
	}{{"1001", false}, {"1002", true}} {
		ev := <-seen
		assert.Equal(t, want.contents, ev.Contents())
		assert.Equal(t, protocol.EventTargetAll, ev.Target())
		assert.Equal(t, "raw", ev.Client())
		assert.Equal(t, want.wantsReturn, ev.WantsReturn())
	}

	// the only RETURN belongs to the RETURNEVENT
	frame, err = protocol.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeReturn, frame.Type)
	assert.Equal(t, "ignored", frame.Body())

	require.NoError(t, protocol.WriteDisconnect(conn))
}

func TestServer_Pings(t *testing.T) {
	_, addr := startServer(t, nil, 20*time.Millisecond)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	r := bufio.NewReader(conn)

	require.NoError(t, protocol.WriteNewGreeting(conn, "raw"))
	require.NoError(t, protocol.WritePingPongControl(conn, true))

	frame, err := protocol.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeGreeting, frame.Type)
	assert.Equal(t, "rvlink-peer rvController", frame.Body())

	for i := 0; i < 2; i++ {
		frame, err = protocol.ReadFrame(r)
		require.NoError(t, err)
		assert.Equal(t, protocol.TypePing, frame.Type)
		require.NoError(t, protocol.WritePong(conn))
	}

	// our own ping is answered too
	require.NoError(t, protocol.WritePing(conn))
	for {
		frame, err = protocol.ReadFrame(r)
		require.NoError(t, err)
		if frame.Type == protocol.TypePong {
			break
		}
		require.Equal(t, protocol.TypePing, frame.Type)
		require.NoError(t, protocol.WritePong(conn))
	}

	require.NoError(t, protocol.WriteDisconnect(conn))
	for {
		_, err = protocol.ReadFrame(r)
		if err != nil {
			break
		}
	}
	assert.True(t, errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestServer_PongTimeoutClosesSession(t *testing.T) {
	srv, addr := startServer(t, nil, 20*time.Millisecond)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, protocol.WriteNewGreeting(conn, "silent"))
	_, err = io.Copy(io.Discard, conn)
	assert.NoError(t, err)
	assert.Eventually(t, func() bool { return len(srv.Sessions()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_NoPingsWhenDisabled(t *testing.T) {
	srv, addr := startServer(t, nil, 10*time.Millisecond)

	conn := client.New(clientConfig(t, addr), zerolog.Nop())
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, conn.Drain(context.Background()))
	assert.True(t, conn.IsConnected())
	assert.Len(t, srv.Sessions(), 1)
}

func TestServer_Broadcast(t *testing.T) {
	srv, addr := startServer(t, nil, 0)
	assert.Zero(t, srv.Broadcast("nobody"))

	var messages []string
	conn := client.New(clientConfig(t, addr), zerolog.Nop(), client.WithMessageHandler(func(body string) {
		messages = append(messages, body)
	}))
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	assert.Equal(t, 1, srv.Broadcast("frame 1001"))
	require.Eventually(t, func() bool {
		if err := conn.Drain(context.Background()); err != nil {
			return false
		}
		return len(messages) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "frame 1001", messages[0])
}

func TestServer_ShutdownDisconnectsControllers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg := config.Peer{}
	cfg.ApplyDefaults(0)
	srv := New(cfg, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error { return srv.Serve(ctx, ln) })

	conn := client.New(clientConfig(t, ln.Addr()), zerolog.Nop())
	require.NoError(t, conn.Connect(context.Background()))

	cancel()
	require.NoError(t, g.Wait())

	require.Eventually(t, func() bool {
		_ = conn.Drain(context.Background())
		return !conn.IsConnected()
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
}

func TestRouter(t *testing.T) {
	router := NewRouter()
	router.Handle("a", HandlerFunc(func(context.Context, *Event) (string, error) { return "A", nil }))

	reply, err := router.HandleEvent(context.Background(), &Event{body: protocol.EventBody{Name: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "A", reply)

	_, err = router.HandleEvent(context.Background(), &Event{body: protocol.EventBody{Name: "b"}})
	assert.ErrorIs(t, err, ErrNoRoute)
}
