package peer

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mmx233/rvlink/catalog"
	"github.com/Mmx233/rvlink/cmd/options"
	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/dispatch"
	"github.com/Mmx233/rvlink/metrics"
	"github.com/Mmx233/rvlink/peer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	listen      string
	catalogFile string
	metricsAddr string

	Cmd = &cobra.Command{
		Use:   "peer",
		Short: "Run a local stand-in for the review application's control port",
		Long: "Run a local stand-in for the review application's control port.\n" +
			"ayon_load_container events are dispatched against the representation\n" +
			"catalog with loaders that log what they would load.",
		Args: cobra.NoArgs,
		RunE: runPeer,
	}
)

func init() {
	Cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address, defaults to peer.listen")
	Cmd.Flags().StringVar(&catalogFile, "catalog", "", "representation catalog file, defaults to peer.catalog")
	Cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
}

func runPeer(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "peer-cmd").Logger()

	cfg, err := options.LoadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Peer.Listen = listen
	}
	if catalogFile != "" {
		cfg.Peer.Catalog = catalogFile
	}
	if metricsAddr != "" {
		cfg.Peer.MetricsAddr = metricsAddr
	}
	if err := cfg.Peer.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	router, err := newRouter(cfg, m, log.Logger)
	if err != nil {
		return err
	}

	if cfg.Peer.MetricsAddr != "" {
		stop := serveMetrics(cfg.Peer.MetricsAddr, reg, logger)
		defer stop()
	}

	return peer.New(cfg.Peer, router, log.Logger, peer.WithMetrics(m)).ListenAndServe(ctx)
}

// newRouter binds ayon_load_container to a dispatcher over the catalog.
func newRouter(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*peer.Router, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.Peer.Catalog != "" {
		cat, err = catalog.Load(cfg.Peer.Catalog, logger)
	} else {
		cat, err = catalog.New(catalog.File{}, logger)
	}
	if err != nil {
		return nil, err
	}

	registry := catalog.NewLogRegistry(logger, cfg.Dispatch.FramesLoader, cfg.Dispatch.MovieLoader)
	d := dispatch.New(cfg.Dispatch, cat, registry, logger, dispatch.WithMetrics(m))

	router := peer.NewRouter()
	router.Handle(dispatch.EventName, peer.DispatchHandler(d))
	return router, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
