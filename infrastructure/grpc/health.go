// Package grpc exposes the standard gRPC health service for probes.
package grpc

import (
	"errors"
	"log/slog"
	"net"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the empty, server wide service name.
const ServiceName = "chat-relay"

type HealthServer struct {
	server *grpc.Server
	health *health.Server
	log    *slog.Logger
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(server, h)
	return &HealthServer{server: server, health: h, log: log}
}

// Serve marks the server as SERVING and blocks until Stop.
func (h *HealthServer) Serve(listener net.Listener) error {
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
	if err := h.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Drain reports NOT_SERVING while the rest of the process shuts down.
func (h *HealthServer) Drain() {
	h.health.Shutdown()
}

func (h *HealthServer) Stop() {
	h.server.GracefulStop()
}
