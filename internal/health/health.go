// Package health exposes the engine's session state over the standard gRPC
// health protocol, so orchestration can tell a faulted engine apart from a
// dead process.
package health

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"kata_review/internal/repository"
)

// Service is the name the engine status is published under.
const Service = "katago"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *zap.SugaredLogger
}

func NewServer(log *zap.SugaredLogger) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		log:    log,
	}
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	// no engine is running until the first analysis starts one
	s.health.SetServingStatus(Service, grpc_health_v1.HealthCheckResponse_SERVING)
	return s
}

// Observe is meant to be registered as a session state hook.
func (s *Server) Observe(state repository.SessionState) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if state == repository.StateFaulted {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(Service, status)
}

func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Infof("grpc health server at %s", addr)
	return s.grpc.Serve(lis)
}

// Shutdown marks every service NOT_SERVING and stops the server.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Check answers a health check without going over the network.
func (s *Server) Check(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	resp, err := s.health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.GetStatus()
}
