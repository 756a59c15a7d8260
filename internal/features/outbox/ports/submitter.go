package ports

import (
	"context"

	"doodhly-fieldops/internal/features/outbox/domain"
)

// Submitter is the contract with the core platform's reconciliation
// endpoint. The server must process actions idempotently: resubmitting
// an action must not double-apply its side effects, and is reported
// back as ALREADY_DONE.
type Submitter interface {
	// SubmitBatch submits queued actions as one batch and returns the
	// per-item outcomes. A transport-level failure returns an error and
	// says nothing about any individual item.
	SubmitBatch(ctx context.Context, actions []domain.OfflineAction) (*domain.BatchResponse, error)
}
