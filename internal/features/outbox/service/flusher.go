package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"doodhly-fieldops/internal/core/logger"
	"doodhly-fieldops/internal/core/metrics"
	"doodhly-fieldops/internal/features/outbox/ports"
	"doodhly-fieldops/internal/features/outbox/storage"

	"go.uber.org/zap"
)

// ErrFlushInFlight is returned when a flush is requested while another
// one is still outstanding. The queued items are not at risk; they will
// go out with the running flush or the next one.
var ErrFlushInFlight = errors.New("flush already in flight")

// Flusher drains the offline action queue to the reconciliation
// endpoint whenever connectivity returns. At most one flush runs at a
// time per device, so a retried connectivity event cannot double-submit
// the same queued items.
type Flusher struct {
	queue     *storage.Queue
	submitter ports.Submitter
	timeout   time.Duration

	inFlight atomic.Bool

	mu        sync.Mutex
	connected bool
}

// NewFlusher creates a Flusher. timeout bounds one batch submission;
// a timed-out flush leaves everything queued for the next attempt.
func NewFlusher(queue *storage.Queue, submitter ports.Submitter, timeout time.Duration) *Flusher {
	return &Flusher{
		queue:     queue,
		submitter: submitter,
		timeout:   timeout,
	}
}

// SetConnected records a connectivity observation. A transition from
// disconnected to connected triggers a flush of the whole queue;
// repeated observations of the same state do nothing.
func (f *Flusher) SetConnected(ctx context.Context, connected bool) {
	f.mu.Lock()
	wasConnected := f.connected
	f.connected = connected
	f.mu.Unlock()

	if connected && !wasConnected {
		if err := f.Flush(ctx); err != nil && !errors.Is(err, ErrFlushInFlight) {
			logger.Get().Warn("Reconnect flush failed, actions remain queued", zap.Error(err))
		}
	}
}

// Flush submits the entire current queue as a single batch and
// reconciles the result item by item: settled actions (processed now or
// ALREADY_DONE) are dequeued, failed ones stay for the next flush. A
// transport failure leaves the queue untouched.
func (f *Flusher) Flush(ctx context.Context) error {
	if !f.inFlight.CompareAndSwap(false, true) {
		return ErrFlushInFlight
	}
	defer f.inFlight.Store(false)

	actions, err := f.queue.Items(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue before flush: %w", err)
	}
	if len(actions) == 0 {
		return nil
	}

	flushCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.submitter.SubmitBatch(flushCtx, actions)
	if err != nil {
		metrics.OutboxFlushes.WithLabelValues("network_error").Inc()
		return fmt.Errorf("batch submission failed, %d actions remain queued: %w", len(actions), err)
	}

	settled, failed := 0, 0
	for _, result := range resp.Results {
		if !result.Settled() {
			failed++
			continue
		}
		if err := f.queue.Dequeue(ctx, result.ID); err != nil {
			return fmt.Errorf("failed to dequeue settled action %s: %w", result.ID, err)
		}
		settled++
	}

	if failed > 0 {
		metrics.OutboxFlushes.WithLabelValues("partial").Inc()
	} else {
		metrics.OutboxFlushes.WithLabelValues("ok").Inc()
	}

	logger.Get().Info("Offline action queue flushed",
		zap.Int("submitted", len(actions)),
		zap.Int("settled", settled),
		zap.Int("failed", failed),
	)
	return nil
}

// Connected reports the last observed connectivity state.
func (f *Flusher) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
