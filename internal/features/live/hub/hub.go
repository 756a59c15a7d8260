package hub

import (
	"sync"

	"doodhly-fieldops/internal/core/logger"
	"doodhly-fieldops/internal/core/metrics"
	"doodhly-fieldops/internal/features/live/domain"
	"doodhly-fieldops/internal/features/live/ports"

	"go.uber.org/zap"
)

// Hub is the in-memory fan-out registry for live position relaying.
// A room exists only while at least one subscriber is joined; reports
// are forwarded fire-and-forget, at most once, with no buffering for
// late joiners.
//
// Membership changes and fan-out are serialized under one lock so a
// report is never forwarded to a party mid-leave.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]ports.Subscriber
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		rooms: make(map[string]map[string]ports.Subscriber),
	}
}

// Join subscribes sub to room. Joining a room twice replaces the
// previous handle for the same subscriber id.
func (h *Hub) Join(room string, sub ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]ports.Subscriber)
		h.rooms[room] = members
	}
	members[sub.ID()] = sub

	logger.Get().Debug("Subscriber joined room",
		zap.String("room", room),
		zap.String("subscriber", sub.ID()),
	)
}

// Leave removes a subscriber from a room. Idempotent: leaving a room
// the subscriber never joined is a no-op. An emptied room is dropped
// from the registry.
func (h *Hub) Leave(room string, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.evictLocked(room, subID)
}

// LeaveAll removes a subscriber from every room it is joined to.
// Used when a transport connection dies.
func (h *Hub) LeaveAll(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.rooms {
		h.evictLocked(room, subID)
	}
}

// Publish forwards a position report to every subscriber of the
// delivery's room except the sender. Delivery is best-effort: a failed
// send evicts the subscriber and the report is not retried.
func (h *Hub) Publish(senderID string, report domain.PositionReport) {
	room := domain.RoomName(report.DeliveryID)
	update := report.Update()

	metrics.PositionReports.Inc()

	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	for id, sub := range members {
		if id == senderID {
			continue
		}
		if err := sub.Send(update); err != nil {
			logger.Get().Warn("Dropping dead subscriber",
				zap.String("room", room),
				zap.String("subscriber", id),
				zap.Error(err),
			)
			metrics.SubscriberEvictions.Inc()
			h.evictLocked(room, id)
			continue
		}
		metrics.PositionFanout.Inc()
	}
}

// RoomSize returns the current membership count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

func (h *Hub) evictLocked(room string, subID string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, joined := members[subID]; !joined {
		return
	}
	delete(members, subID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}
