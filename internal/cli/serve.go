package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hugr-lab/docbridge"
	"github.com/hugr-lab/docbridge/mongotable"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Flight server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, address)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides the config)")

	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, address string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Address = address
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	clients, err := mongotable.NewClientCache(cfg.ClientCacheSize, logger)
	if err != nil {
		return err
	}
	defer clients.Close()

	cat, err := buildCatalog(cfg, clients, logger)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Address, err)
	}

	serverConfig := docbridge.ServerConfig{
		Catalog:        cat,
		Logger:         logger,
		MaxMessageSize: cfg.MaxMessageSize,
		Address:        lis.Addr().String(),
	}
	if len(cfg.Auth.Tokens) > 0 {
		serverConfig.Auth = docbridge.StaticTokens(cfg.Auth.Tokens)
	}
	grpcServer := grpc.NewServer(docbridge.ServerOptions(serverConfig)...)
	if err := docbridge.NewServer(grpcServer, serverConfig); err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		logger.Info("Serving metrics", "address", cfg.MetricsAddress)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- grpcServer.Serve(lis) }()
	logger.Info("Serving Flight", "address", lis.Addr().String(), "schemas", len(cfg.Schemas))

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("Shutting down")
		grpcServer.GracefulStop()
	}

	if metricsServer != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := metricsServer.Shutdown(sctx); serr != nil {
			logger.Warn("Metrics server shutdown", "error", serr)
		}
	}
	return err
}
