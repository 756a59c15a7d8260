// Package marker renders discrete location updates as smooth motion.
//
// A Marker is the client-side half of the live relay: the update
// handler writes interpolation targets, a per-channel ticking loop
// advances the on-screen position toward the latest one. Targets are
// last-write-wins; a burst of updates animates toward the most recent
// only, which is intentional — smoothness, not sample replay.
package marker

import (
	"context"
	"math"
	"sync"
	"time"

	"doodhly-fieldops/internal/features/live/domain"
)

// stepFraction is how much of the remaining gap one animation step
// covers; the motion decays exponentially toward the target.
const stepFraction = 0.05

// snapEpsilon is the remaining gap, in degrees, below which the marker
// snaps exactly onto the target (roughly a meter).
const snapEpsilon = 1e-5

// Position is a rendered coordinate pair.
type Position struct {
	Lat float64
	Lng float64
}

// Marker interpolates between the last rendered position and the most
// recent location update for one delivery channel.
type Marker struct {
	mu        sync.Mutex
	current   Position
	target    Position
	hasTarget bool
	settled   bool
	moving    bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle Marker with no position.
func New() *Marker {
	return &Marker{settled: true}
}

// SetTarget records a new interpolation target. The first update
// places the marker directly on the reported position; later updates
// start a glide from wherever the marker currently is.
func (m *Marker) SetTarget(update domain.LocationUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := Position{Lat: update.Lat, Lng: update.Lng}
	if !m.hasTarget {
		m.current = next
	}
	m.target = next
	m.hasTarget = true
	m.settled = false
	m.moving = update.Moving()
}

// Step advances the rendered position one animation frame toward the
// target. Returns false once the marker has settled on the target and
// there is nothing left to animate.
func (m *Marker) Step() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasTarget || m.settled {
		return false
	}

	dLat := m.target.Lat - m.current.Lat
	dLng := m.target.Lng - m.current.Lng

	if math.Hypot(dLat, dLng) < snapEpsilon {
		m.current = m.target
		m.settled = true
		return false
	}

	m.current.Lat += dLat * stepFraction
	m.current.Lng += dLng * stepFraction
	return true
}

// Position returns the currently rendered position.
func (m *Marker) Position() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ETAText returns the display hint for the delivery: an approximation
// derived from whether the partner reported movement, not a computed
// arrival time.
func (m *Marker) ETAText() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasTarget {
		return "waiting for location"
	}
	if m.moving {
		return "partner is on the way"
	}
	return "partner is stationary"
}

// Run starts the animation loop, stepping once per interval until the
// context is cancelled or Stop is called. Starting an already running
// marker is a no-op.
func (m *Marker) Run(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Step()
			}
		}
	}()
}

// Stop halts the animation loop and waits for it to exit. Stopping a
// marker that never ran is a no-op. Channels being abandoned must call
// Stop so no interpolation loop leaks.
func (m *Marker) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
