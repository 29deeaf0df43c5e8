// Package grpc runs the operational gRPC endpoint: the standard health
// service, fed by periodic dependency checks, plus server reflection.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/emoticons/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall "" status.
const ServiceName = "emoticons"

// maxCheckTimeout caps a single dependency check.
const maxCheckTimeout = 5 * time.Second

// Check probes one dependency. A nil error means healthy.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	checks   []Check
	interval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, interval time.Duration, checks ...Check) *GRPCServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	// NOT_SERVING until the first round of checks has passed
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		health:   hs,
		checks:   checks,
		interval: interval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)
	return s.Serve(ctx, listen)
}

// Serve runs the server on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watch(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe runs every check and publishes SERVING only if all of them pass.
func (s *GRPCServer) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, min(s.interval, maxCheckTimeout))
		err := c.Ping(checkCtx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "health check failed", "check", c.Name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	if ctx.Err() != nil {
		return
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
