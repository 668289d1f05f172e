// Package server hosts the process-level plumbing of long-running modes: the
// journal database lifecycle and the gRPC health endpoint.
package server

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the watcher.
const ServiceName = "document-pipeline.watch"

// HealthServer serves grpc.health.v1 for watch mode.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *slog.Logger
}

// StartHealth listens on addr and starts serving in the background. The
// service starts NOT_SERVING until SetServing(true).
func StartHealth(addr string, logger *slog.Logger) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		return nil, err
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	s := &HealthServer{grpc: gs, health: hs, lis: lis, logger: logger}
	go func() {
		if err := gs.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
		}
	}()
	logger.Info("health server listening", "addr", lis.Addr().String())
	return s, nil
}

// Addr is the bound listen address.
func (s *HealthServer) Addr() string { return s.lis.Addr().String() }

// SetServing flips both the overall and the watcher status.
func (s *HealthServer) SetServing(ok bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Stop marks the server as shutting down and stops it gracefully, or hard
// when ctx ends first.
func (s *HealthServer) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
	s.logger.Info("health server stopped")
}
