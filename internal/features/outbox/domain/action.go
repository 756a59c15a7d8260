package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind classifies a delivery outcome recorded offline.
type ActionKind string

const (
	// ActionVerifyDelivery records a completed, code-verified delivery.
	ActionVerifyDelivery ActionKind = "verify_delivery"
	// ActionReportIssue records a problem at a stop.
	ActionReportIssue ActionKind = "report_issue"
)

// StatusAlreadyDone marks a batch item whose outcome the server had
// already recorded, e.g. via another channel or a prior partial flush.
// Idempotent no-op: safe to dequeue.
const StatusAlreadyDone = "ALREADY_DONE"

// OfflineAction is a durable record of a delivery outcome captured
// while disconnected. It stays queued until the server confirms it.
type OfflineAction struct {
	// ID is the locally generated unique identifier.
	ID string `json:"id"`
	// Kind is the outcome type.
	Kind ActionKind `json:"type"`
	// DeliveryID is the affected delivery.
	DeliveryID string `json:"delivery_id"`
	// Code is the verification code entered at the doorstep (verify only).
	Code string `json:"code,omitempty"`
	// Lat and Lng are the coordinates captured at verification, if any.
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
	// Reason describes the reported problem (issue only).
	Reason string `json:"reason,omitempty"`
	// CapturedAt is when the partner performed the action.
	CapturedAt time.Time `json:"timestamp"`
}

// NewVerifyDelivery creates a verify-delivery action. lat/lng may be nil
// when the device had no fix at capture time.
func NewVerifyDelivery(deliveryID, code string, lat, lng *float64) OfflineAction {
	return OfflineAction{
		ID:         uuid.NewString(),
		Kind:       ActionVerifyDelivery,
		DeliveryID: deliveryID,
		Code:       code,
		Lat:        lat,
		Lng:        lng,
		CapturedAt: time.Now().UTC(),
	}
}

// NewReportIssue creates a report-issue action.
func NewReportIssue(deliveryID, reason string) OfflineAction {
	return OfflineAction{
		ID:         uuid.NewString(),
		Kind:       ActionReportIssue,
		DeliveryID: deliveryID,
		Reason:     reason,
		CapturedAt: time.Now().UTC(),
	}
}

// BatchRequest is the reconciliation payload sent on flush.
type BatchRequest struct {
	Updates []OfflineAction `json:"updates"`
}

// BatchItemResult is the server's verdict on one submitted action.
type BatchItemResult struct {
	// ID echoes the action identifier.
	ID string `json:"id"`
	// Success indicates the outcome was recorded by this submission.
	Success bool `json:"success"`
	// Status carries ALREADY_DONE when the outcome was recorded earlier.
	Status string `json:"status,omitempty"`
	// Error describes a per-item failure.
	Error string `json:"error,omitempty"`
}

// Settled reports whether the action can be removed from the local
// queue: either processed now or already processed before.
func (r BatchItemResult) Settled() bool {
	return r.Success || r.Status == StatusAlreadyDone
}

// BatchResponse is the per-item reconciliation outcome of one flush.
type BatchResponse struct {
	Results []BatchItemResult `json:"results"`
}
