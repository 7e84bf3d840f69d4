package peer

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/metrics"
	rvpeer "github.com/Mmx233/rvlink/peer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_DispatchesLoadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("representations:\n  - id: a\n    path: /a.exr\n"), 0o644))

	cfg := &config.Config{Peer: config.Peer{Catalog: path}}
	require.NoError(t, cfg.ApplyDefaults())

	router, err := newRouter(cfg, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	require.NoError(t, err)

	ev := rvpeer.NewEvent("ayon_load_container", `[{"representation":"a"}]`)
	_, err = router.HandleEvent(context.Background(), ev)
	require.NoError(t, err)

	ev = rvpeer.NewEvent("ayon_load_container", `[{"representation":"ghost"}]`)
	_, err = router.HandleEvent(context.Background(), ev)
	assert.ErrorContains(t, err, "missing representation")
}

func TestNewRouter_MissingCatalog(t *testing.T) {
	cfg := &config.Config{Peer: config.Peer{Catalog: filepath.Join(t.TempDir(), "none.yaml")}}
	require.NoError(t, cfg.ApplyDefaults())

	_, err := newRouter(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestServeMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Unmatched()

	stop := serveMetrics(addr, reg, zerolog.Nop())
	defer stop()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "rvlink_unmatched_total 1"))
}
