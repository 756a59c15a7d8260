package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"doodhly-fieldops/internal/core/kv"
	"doodhly-fieldops/internal/features/outbox/domain"
	"doodhly-fieldops/internal/features/outbox/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSubmitter scripts per-item batch outcomes and records calls.
type mockSubmitter struct {
	mu      sync.Mutex
	batches [][]domain.OfflineAction
	results func(actions []domain.OfflineAction) []domain.BatchItemResult
	err     error
	started chan struct{}
	proceed chan struct{}
}

func (m *mockSubmitter) SubmitBatch(ctx context.Context, actions []domain.OfflineAction) (*domain.BatchResponse, error) {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.proceed != nil {
		<-m.proceed
	}

	m.mu.Lock()
	m.batches = append(m.batches, actions)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	results := make([]domain.BatchItemResult, 0, len(actions))
	if m.results != nil {
		results = m.results(actions)
	} else {
		for _, a := range actions {
			results = append(results, domain.BatchItemResult{ID: a.ID, Success: true})
		}
	}
	return &domain.BatchResponse{Results: results}, nil
}

func (m *mockSubmitter) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func newTestQueue(t *testing.T) *storage.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := kv.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return storage.NewQueue(store, "device-1")
}

func enqueueThree(t *testing.T, q *storage.Queue) []domain.OfflineAction {
	t.Helper()
	ctx := context.Background()
	actions := []domain.OfflineAction{
		domain.NewVerifyDelivery("d1", "1111", nil, nil),
		domain.NewVerifyDelivery("d2", "2222", nil, nil),
		domain.NewReportIssue("d3", "customer unavailable"),
	}
	for _, a := range actions {
		require.NoError(t, q.Enqueue(ctx, a))
	}
	return actions
}

// TestFlusher_ReconnectFlushesOnce verifies the offline->online transition
// submits exactly one batch containing every queued action.
func TestFlusher_ReconnectFlushesOnce(t *testing.T) {
	q := newTestQueue(t)
	actions := enqueueThree(t, q)
	sub := &mockSubmitter{}
	f := NewFlusher(q, sub, time.Second)
	ctx := context.Background()

	f.SetConnected(ctx, false)
	f.SetConnected(ctx, true)

	require.Equal(t, 1, sub.batchCount())
	require.Len(t, sub.batches[0], 3)
	assert.Equal(t, actions[0].ID, sub.batches[0][0].ID)

	// Staying connected does not re-flush.
	f.SetConnected(ctx, true)
	assert.Equal(t, 1, sub.batchCount())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestFlusher_AlreadyDoneDequeued verifies ALREADY_DONE is treated as
// settled: all three items leave the queue.
func TestFlusher_AlreadyDoneDequeued(t *testing.T) {
	q := newTestQueue(t)
	enqueueThree(t, q)

	sub := &mockSubmitter{
		results: func(actions []domain.OfflineAction) []domain.BatchItemResult {
			return []domain.BatchItemResult{
				{ID: actions[0].ID, Success: true},
				{ID: actions[1].ID, Status: domain.StatusAlreadyDone},
				{ID: actions[2].ID, Success: true},
			}
		},
	}
	f := NewFlusher(q, sub, time.Second)
	ctx := context.Background()

	require.NoError(t, f.Flush(ctx))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestFlusher_FailedItemStaysQueued verifies a per-item failure keeps only
// that action for the next flush.
func TestFlusher_FailedItemStaysQueued(t *testing.T) {
	q := newTestQueue(t)
	actions := enqueueThree(t, q)

	sub := &mockSubmitter{
		results: func(batch []domain.OfflineAction) []domain.BatchItemResult {
			return []domain.BatchItemResult{
				{ID: batch[0].ID, Success: true},
				{ID: batch[1].ID, Status: domain.StatusAlreadyDone},
				{ID: batch[2].ID, Success: false, Error: "delivery not found"},
			}
		},
	}
	f := NewFlusher(q, sub, time.Second)
	ctx := context.Background()

	require.NoError(t, f.Flush(ctx))

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, actions[2].ID, items[0].ID)
}

// TestFlusher_NetworkFailureKeepsQueue verifies a transport error leaves
// the whole queue intact for retry.
func TestFlusher_NetworkFailureKeepsQueue(t *testing.T) {
	q := newTestQueue(t)
	enqueueThree(t, q)

	sub := &mockSubmitter{err: errors.New("connection refused")}
	f := NewFlusher(q, sub, time.Second)
	ctx := context.Background()

	err := f.Flush(ctx)
	require.Error(t, err)

	n, qerr := q.Len(ctx)
	require.NoError(t, qerr)
	assert.Equal(t, 3, n)

	// The next reconnect retries the same actions.
	sub.err = nil
	f.SetConnected(ctx, true)
	assert.Equal(t, 2, sub.batchCount())

	n, qerr = q.Len(ctx)
	require.NoError(t, qerr)
	assert.Zero(t, n)
}

// TestFlusher_EmptyQueue verifies flushing an empty queue submits nothing.
func TestFlusher_EmptyQueue(t *testing.T) {
	q := newTestQueue(t)
	sub := &mockSubmitter{}
	f := NewFlusher(q, sub, time.Second)

	require.NoError(t, f.Flush(context.Background()))
	assert.Zero(t, sub.batchCount())
}

// TestFlusher_SingleFlight verifies a re-entrant flush attempt is
// suppressed while one is outstanding.
func TestFlusher_SingleFlight(t *testing.T) {
	q := newTestQueue(t)
	enqueueThree(t, q)

	sub := &mockSubmitter{
		started: make(chan struct{}, 1),
		proceed: make(chan struct{}),
	}
	f := NewFlusher(q, sub, time.Second)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() { errCh <- f.Flush(ctx) }()

	<-sub.started
	assert.ErrorIs(t, f.Flush(ctx), ErrFlushInFlight)

	close(sub.proceed)
	require.NoError(t, <-errCh)
	assert.Equal(t, 1, sub.batchCount())
}
