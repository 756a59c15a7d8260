package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"doodhly-fieldops/internal/core/kv"
	"doodhly-fieldops/internal/features/outbox/domain"
)

// Queue is the durable, append-only log of pending offline actions for
// one device. The whole list lives under a single device-scoped key and
// every mutation rewrites it atomically, so the queue survives process
// restarts intact.
type Queue struct {
	store kv.Store
	key   string
	mu    sync.Mutex
}

// NewQueue opens the action queue for a device. Reopening with the same
// store and device id sees everything previously enqueued.
func NewQueue(store kv.Store, deviceID string) *Queue {
	return &Queue{
		store: store,
		key:   "fieldops:outbox:" + deviceID,
	}
}

// Enqueue appends an action to the durable log.
func (q *Queue) Enqueue(ctx context.Context, action domain.OfflineAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	items = append(items, action)
	return q.save(ctx, items)
}

// Dequeue removes the action with the given id. Removing an id that is
// not queued is a no-op.
func (q *Queue) Dequeue(ctx context.Context, actionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != actionID {
			kept = append(kept, item)
		}
	}
	return q.save(ctx, kept)
}

// Items returns the queued actions in enqueue order.
func (q *Queue) Items(ctx context.Context) ([]domain.OfflineAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Len returns the number of queued actions.
func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (q *Queue) load(ctx context.Context) ([]domain.OfflineAction, error) {
	data, err := q.store.Get(ctx, q.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read action queue: %w", err)
	}

	var items []domain.OfflineAction
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode action queue: %w", err)
	}
	return items, nil
}

func (q *Queue) save(ctx context.Context, items []domain.OfflineAction) error {
	if len(items) == 0 {
		if err := q.store.Delete(ctx, q.key); err != nil {
			return fmt.Errorf("failed to clear action queue: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode action queue: %w", err)
	}
	// Queued outcomes never expire: durability beats bounded retention here.
	if err := q.store.Set(ctx, q.key, data, 0); err != nil {
		return fmt.Errorf("failed to write action queue: %w", err)
	}
	return nil
}
