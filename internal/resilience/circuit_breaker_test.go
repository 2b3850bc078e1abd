package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/resilience"
)

func TestExecute_PassesThroughResultOnSuccess(t *testing.T) {
	b := resilience.New("test", resilience.DefaultConfig())

	result, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", b.State())
}

func TestExecute_TripsOpenAfterConsecutiveFailures(t *testing.T) {
	cfg := resilience.Config{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxRequests: 1}
	b := resilience.New("test", cfg)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, "open", b.State())

	_, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "should not run", nil
	})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestExecute_RespectsCancelledContext(t *testing.T) {
	b := resilience.New("test", resilience.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		t.Fatal("fn should not run with an already-cancelled context")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
