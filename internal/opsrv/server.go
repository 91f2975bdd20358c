// Package opsrv runs the operational gRPC surface: the standard health
// service, reporting SERVING once the base map has been drawn.
package opsrv

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/groundtrack/internal/logging"
)

// TrackingService is the health service name for the tracking view. The
// empty name reports the same status.
const TrackingService = "groundtrack.Tracking"

// UnaryMetrics supplies the metrics interceptor. *observability.AnimationCollector
// implements it.
type UnaryMetrics interface {
	UnaryServerInterceptor() grpc.UnaryServerInterceptor
}

// Server wraps a grpc.Server carrying the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    logging.Logger
}

// New builds the server with otelgrpc stats, request-id and span interceptors,
// plus the metrics interceptor when m is non-nil. Status starts NOT_SERVING.
func New(log logging.Logger, m UnaryMetrics) *Server {
	if log == nil {
		log = logging.Noop()
	}
	unary := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if m != nil {
		unary = append(unary, m.UnaryServerInterceptor())
	}
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(RequestIDStreamServerInterceptor(log)),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs, log: log}
	s.SetServing(false)
	return s
}

// SetServing flips the reported health of the tracking view.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(TrackingService, st)
	s.log.Info(context.Background(), "ops health status changed", logging.String("status", st.String()))
}

// Serve blocks serving lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Stop closes all connections immediately.
func (s *Server) Stop() {
	s.grpc.Stop()
}
