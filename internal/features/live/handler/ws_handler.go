package handler

import (
	"sync"
	"time"

	"doodhly-fieldops/internal/core/logger"
	"doodhly-fieldops/internal/features/live/domain"
	"doodhly-fieldops/internal/features/live/hub"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names of the tracking channel protocol.
const (
	EventJoin           = "join"
	EventLeave          = "leave"
	EventReport         = "report"
	EventLocationUpdate = "location_update"
)

// Frame is a client-to-server message on the tracking socket.
type Frame struct {
	// Event selects the operation: join, leave or report.
	Event string `json:"event"`
	// DeliveryID names the delivery channel the event applies to.
	DeliveryID string `json:"delivery_id"`
	// PartnerID identifies the reporting partner (report only).
	PartnerID string `json:"partner_id,omitempty"`
	// Lat and Lng carry the reported position (report only).
	Lat float64 `json:"lat,omitempty"`
	Lng float64 `json:"lng,omitempty"`
	// Speed is the reported ground speed in m/s, if known.
	Speed *float64 `json:"speed,omitempty"`
	// Heading is the direction of travel in degrees, if known.
	Heading *float64 `json:"heading,omitempty"`
	// CapturedAt is the device-side capture time; defaults to receipt time.
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// UpdateFrame is a server-to-client location update.
type UpdateFrame struct {
	Event string `json:"event"`
	domain.LocationUpdate
}

// WSHandler terminates tracking WebSocket connections and bridges them
// onto the relay hub. Authorization is the gateway's concern, not ours.
type WSHandler struct {
	hub *hub.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{hub: h}
}

// UpgradeRequired rejects plain HTTP requests on the socket route.
func (h *WSHandler) UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Track handles one tracking socket for its whole lifetime. The read
// loop dispatches join/leave/report frames; when the transport drops,
// the connection leaves every room it joined and the loop exits. The
// relay holds no durable state, so a reconnect simply re-joins.
func (h *WSHandler) Track() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess := &session{id: uuid.NewString(), conn: conn}
		defer h.hub.LeaveAll(sess.id)

		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				logger.Get().Debug("Tracking socket closed",
					zap.String("session", sess.id),
					zap.Error(err),
				)
				return
			}

			switch f.Event {
			case EventJoin:
				h.hub.Join(domain.RoomName(f.DeliveryID), sess)
			case EventLeave:
				h.hub.Leave(domain.RoomName(f.DeliveryID), sess.id)
			case EventReport:
				capturedAt := f.CapturedAt
				if capturedAt.IsZero() {
					capturedAt = time.Now().UTC()
				}
				h.hub.Publish(sess.id, domain.PositionReport{
					DeliveryID: f.DeliveryID,
					PartnerID:  f.PartnerID,
					Lat:        f.Lat,
					Lng:        f.Lng,
					Speed:      f.Speed,
					Heading:    f.Heading,
					CapturedAt: capturedAt,
				})
			default:
				logger.Get().Debug("Ignoring unknown frame event",
					zap.String("event", f.Event),
					zap.String("session", sess.id),
				)
			}
		}
	})
}

// session adapts one socket connection to the hub's Subscriber port.
// Writes are serialized: fan-out reaches a session from other
// connections' read loops.
type session struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) ID() string { return s.id }

// Send forwards a location update over the socket.
func (s *session) Send(update domain.LocationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(UpdateFrame{Event: EventLocationUpdate, LocationUpdate: update})
}
