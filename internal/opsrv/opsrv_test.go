package opsrv

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/observability"
)

func startServer(t *testing.T, m UnaryMetrics) (*Server, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := New(logging.Noop(), m)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthFollowsServing(t *testing.T) {
	srv, client := startServer(t, nil)

	if got := check(t, client, TrackingService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before the map renders, got %v", got)
	}

	srv.SetServing(true)
	for _, svc := range []string{"", TrackingService} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("service %q: expected SERVING, got %v", svc, got)
		}
	}

	srv.SetServing(false)
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v", got)
	}
}

func TestHealthUnknownService(t *testing.T) {
	_, client := startServer(t, nil)

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "nope"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMetricsInterceptorRecordsChecks(t *testing.T) {
	collector, err := observability.NewAnimationCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewAnimationCollector: %v", err)
	}
	srv, client := startServer(t, collector)
	srv.SetServing(true)

	check(t, client, TrackingService)
	check(t, client, TrackingService)

	got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", codes.OK.String()))
	if got != 2 {
		t.Fatalf("expected 2 recorded checks, got %v", got)
	}
}

func TestRequestIDInterceptorUsesMetadata(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "req-42"))
	var seen string
	var hasLogger bool
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = logging.RequestIDFromContext(ctx)
		hasLogger = logging.LoggerFromContext(ctx) != nil
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "req-42" || !hasLogger {
		t.Fatalf("expected request id req-42 and a logger, got %q, %v", seen, hasLogger)
	}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if seen == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestTracingInterceptorStartsSpan(t *testing.T) {
	interceptor := TracingUnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	called := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		return nil, status.Error(codes.Unavailable, "down")
	})
	if !called {
		t.Fatalf("handler not called")
	}
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected the handler error back, got %v", err)
	}
}
