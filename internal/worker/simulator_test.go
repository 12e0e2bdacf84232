package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/model"
)

func fixedRoll(v float64) func() float64 {
	return func() float64 { return v }
}

func TestSimulator_RingsConfiguredPatient(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))
	sim := NewSimulator(f.calls, DefaultSimulatorConfig(), fixedRoll(0.1), nil, nil)

	c, err := sim.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.CallStatusRinging, c.Status)
	assert.Equal(t, "p1", c.PatientID)
	assert.Equal(t, "Dr. Johnson", c.DoctorName)

	// the ringing call blocks another one
	again, err := sim.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)

	_, err = f.calls.Decline(ctx, c.ID)
	require.NoError(t, err)

	next, err := sim.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.NotEqual(t, c.ID, next.ID)
}

func TestSimulator_RespectsProbability(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))
	sim := NewSimulator(f.calls, DefaultSimulatorConfig(), fixedRoll(0.2), nil, nil)

	c, err := sim.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, c)

	calls, err := f.calls.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestSimulator_StopsOnCancel(t *testing.T) {
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))
	cfg := DefaultSimulatorConfig()
	cfg.Interval = time.Millisecond
	sim := NewSimulator(f.calls, cfg, fixedRoll(0.9), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop")
	}
}
