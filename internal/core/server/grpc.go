// Package server runs the targeting service over gRPC.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/cuitarget/internal/core/api"
	"github.com/solatis/cuitarget/internal/core/config"
)

const shutdownTimeout = 30 * time.Second

// GRPCServer owns the grpc.Server, its health service and the listener.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	config *config.ServerConfig
	log    zerolog.Logger
}

// NewGRPCServer registers service and the standard health service.
func NewGRPCServer(cfg *config.ServerConfig, service api.TargetingServer, log zerolog.Logger) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(api.UnaryInterceptor(log, cfg.RequestTimeout)),
		grpc.MaxConcurrentStreams(uint32(cfg.MaxConnections)),
	)
	api.RegisterTargetingServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		log:    log,
	}, nil
}

// Start binds host:port and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.log.Info().Str("addr", listener.Addr().String()).Msg("serving")
	return s.server.Serve(listener)
}

// Shutdown marks the server NOT_SERVING and stops it gracefully, forcing the
// stop after 30 seconds or when ctx ends.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
