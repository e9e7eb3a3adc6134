// Package grpcx serves the operational gRPC surface: the standard health
// service and server reflection.
package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the coordinator.
const ServiceName = "codecollab.Coordinator"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func New(callGuard time.Duration) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(callGuard)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{grpc: gs, health: hs}
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the coordinator health status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// TrackHub reports SERVING until hubDone is closed or ctx ends.
func (s *Server) TrackHub(ctx context.Context, hubDone <-chan struct{}) {
	s.SetServing(true)
	go func() {
		select {
		case <-hubDone:
		case <-ctx.Done():
		}
		s.SetServing(false)
		slog.Info("grpc health set to NOT_SERVING")
	}()
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks the server NOT_SERVING and waits for in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
