package e2e

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Mmx233/rvlink/catalog"
	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/dispatch"
	"github.com/Mmx233/rvlink/peer"
	"github.com/rs/zerolog"
)

// loadCall is one loader invocation seen by the peer.
type loadCall struct {
	Loader  string
	ID      string
	Project string
}

// recordingRegistry offers loaders that remember what they were asked to load.
type recordingRegistry struct {
	names []string

	mu    sync.Mutex
	calls []loadCall
}

func (r *recordingRegistry) Discover(context.Context, string) ([]dispatch.Loader, error) {
	loaders := make([]dispatch.Loader, len(r.names))
	for i, name := range r.names {
		loaders[i] = recordingLoader{name: name, registry: r}
	}
	return loaders, nil
}

func (r *recordingRegistry) Calls() []loadCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]loadCall(nil), r.calls...)
}

type recordingLoader struct {
	name     string
	registry *recordingRegistry
}

func (l recordingLoader) Name() string { return l.name }

func (l recordingLoader) Load(_ context.Context, rep dispatch.Representation, project string) error {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	l.registry.calls = append(l.registry.calls, loadCall{Loader: l.name, ID: rep.ID, Project: project})
	return nil
}

// startPeer runs a peer that dispatches load events for project "demo".
func startPeer(t *testing.T, entries []catalog.Entry) (*peer.Server, *recordingRegistry, net.Addr, context.CancelFunc) {
	t.Helper()

	cat, err := catalog.New(catalog.File{Representations: entries}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	dispatchCfg := config.Dispatch{Project: "demo"}
	dispatchCfg.ApplyDefaults()
	registry := &recordingRegistry{names: []string{dispatchCfg.FramesLoader, dispatchCfg.MovieLoader}}

	router := peer.NewRouter()
	router.Handle(dispatch.EventName, peer.DispatchHandler(dispatch.New(dispatchCfg, cat, registry, zerolog.Nop())))

	peerCfg := config.Peer{}
	peerCfg.ApplyDefaults(0)
	srv := peer.New(peerCfg, router, zerolog.Nop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("peer error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("peer did not stop")
		}
	}
	t.Cleanup(stop)

	return srv, registry, ln.Addr(), stop
}

func clientConfig(t *testing.T, addr net.Addr, name string) config.Client {
	t.Helper()
	cfg := config.Client{
		Host:           "127.0.0.1",
		Port:           addr.(*net.TCPAddr).Port,
		Name:           name,
		ConnectTimeout: 2 * time.Second,
		PollInterval:   20 * time.Millisecond,
		ReplyTimeout:   2 * time.Second,
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("failed to apply defaults: %v", err)
	}
	cfg.CloseGrace = time.Millisecond
	return cfg
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
