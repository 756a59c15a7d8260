package marker

import (
	"context"
	"testing"
	"time"

	"doodhly-fieldops/internal/features/live/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(lat, lng float64, speed *float64) domain.LocationUpdate {
	return domain.LocationUpdate{DeliveryID: "d1", Lat: lat, Lng: lng, Speed: speed}
}

func f64(v float64) *float64 { return &v }

// TestMarker_FirstUpdateSnaps verifies the first report places the marker
// directly on the reported position.
func TestMarker_FirstUpdateSnaps(t *testing.T) {
	m := New()
	m.SetTarget(update(12.9716, 77.5946, nil))

	pos := m.Position()
	assert.Equal(t, 12.9716, pos.Lat)
	assert.Equal(t, 77.5946, pos.Lng)
}

// TestMarker_StepConverges verifies exponential decay toward the target
// and the final snap.
func TestMarker_StepConverges(t *testing.T) {
	m := New()
	m.SetTarget(update(10.0, 20.0, nil))
	m.SetTarget(update(10.1, 20.1, nil))

	// One step covers 5% of the remaining gap.
	require.True(t, m.Step())
	pos := m.Position()
	assert.InDelta(t, 10.005, pos.Lat, 1e-9)
	assert.InDelta(t, 20.005, pos.Lng, 1e-9)

	// Keep stepping; the marker must land exactly on the target.
	for i := 0; i < 1000; i++ {
		if !m.Step() {
			break
		}
	}
	pos = m.Position()
	assert.Equal(t, 10.1, pos.Lat)
	assert.Equal(t, 20.1, pos.Lng)

	// Once settled, further steps do nothing.
	assert.False(t, m.Step())
}

// TestMarker_LastWriteWins verifies a burst of updates animates toward the
// most recent target only.
func TestMarker_LastWriteWins(t *testing.T) {
	m := New()
	m.SetTarget(update(10.0, 20.0, nil))
	m.SetTarget(update(10.5, 20.0, nil))
	m.SetTarget(update(11.0, 20.0, nil))

	for i := 0; i < 2000; i++ {
		if !m.Step() {
			break
		}
	}

	pos := m.Position()
	assert.Equal(t, 11.0, pos.Lat)
}

// TestMarker_NoTarget verifies an idle marker does not animate.
func TestMarker_NoTarget(t *testing.T) {
	m := New()
	assert.False(t, m.Step())
	assert.Equal(t, Position{}, m.Position())
}

// TestMarker_ETAText verifies the movement heuristic.
func TestMarker_ETAText(t *testing.T) {
	m := New()
	assert.Equal(t, "waiting for location", m.ETAText())

	m.SetTarget(update(10, 20, f64(4.2)))
	assert.Equal(t, "partner is on the way", m.ETAText())

	m.SetTarget(update(10, 20, f64(0)))
	assert.Equal(t, "partner is stationary", m.ETAText())

	m.SetTarget(update(10, 20, nil))
	assert.Equal(t, "partner is stationary", m.ETAText())
}

// TestMarker_RunStop verifies the ticking loop advances the marker and
// that Stop halts it without leaking.
func TestMarker_RunStop(t *testing.T) {
	m := New()
	m.SetTarget(update(10.0, 20.0, nil))
	m.SetTarget(update(11.0, 21.0, nil))

	m.Run(context.Background(), time.Millisecond)
	// Starting twice is a no-op.
	m.Run(context.Background(), time.Millisecond)

	assert.Eventually(t, func() bool {
		return m.Position().Lat > 10.0
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	after := m.Position()

	// No further motion once stopped.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, m.Position())

	// Stopping again is a no-op.
	m.Stop()
}

// TestMarker_RunContextCancel verifies cancellation stops the loop.
func TestMarker_RunContextCancel(t *testing.T) {
	m := New()
	m.SetTarget(update(10.0, 20.0, nil))
	m.SetTarget(update(11.0, 21.0, nil))

	ctx, cancel := context.WithCancel(context.Background())
	m.Run(ctx, time.Millisecond)
	cancel()

	// The loop exits; Stop still returns promptly afterwards.
	m.Stop()
}
