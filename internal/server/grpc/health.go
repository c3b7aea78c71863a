package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/filings/internal/runtime"
)

const healthPollInterval = 5 * time.Second

// healthSvc keeps the standard health service in step with runtime health.
type healthSvc struct {
	rt  *runtime.Runtime
	srv *health.Server
}

func newHealthSvc(rt *runtime.Runtime) *healthSvc {
	h := &healthSvc{rt: rt, srv: health.NewServer()}
	h.refresh(context.Background())
	return h
}

func (h *healthSvc) refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := h.rt.CheckHealth(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(serviceName, st)
}

// watch refreshes the status until ctx ends, then reports NOT_SERVING.
func (h *healthSvc) watch(ctx context.Context) {
	t := time.NewTicker(healthPollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-t.C:
			h.refresh(ctx)
		}
	}
}
