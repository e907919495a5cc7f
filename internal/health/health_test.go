package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"kata_review/internal/repository"
)

func TestObserveFollowsSessionState(t *testing.T) {
	s := NewServer(zap.NewNop().Sugar())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, s.Check(Service))

	s.Observe(repository.StateAwaitingResponse)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, s.Check(Service))

	s.Observe(repository.StateFaulted)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, s.Check(Service))

	// the supervisor relaunched the engine
	s.Observe(repository.StateIdle)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, s.Check(Service))
}

func TestCheckUnknownService(t *testing.T) {
	s := NewServer(zap.NewNop().Sugar())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN, s.Check("gnugo"))
}

func TestShutdown(t *testing.T) {
	s := NewServer(zap.NewNop().Sugar())
	s.Shutdown()
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, s.Check(Service))
}
