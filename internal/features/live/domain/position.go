package domain

import "time"

// RoomName returns the relay channel name for one delivery.
func RoomName(deliveryID string) string {
	return "delivery_" + deliveryID
}

// PositionReport is a single timestamped observation of a partner's
// location, published by the partner's device. Reports are ephemeral:
// the relay never persists them.
type PositionReport struct {
	// DeliveryID scopes the report to one delivery channel.
	DeliveryID string `json:"delivery_id"`
	// PartnerID identifies the reporting partner.
	PartnerID string `json:"partner_id"`
	// Lat is the latitude in degrees.
	Lat float64 `json:"lat"`
	// Lng is the longitude in degrees.
	Lng float64 `json:"lng"`
	// Speed is the reported ground speed in m/s, if the device knows it.
	Speed *float64 `json:"speed,omitempty"`
	// Heading is the direction of travel in degrees, if known.
	Heading *float64 `json:"heading,omitempty"`
	// CapturedAt is the device-side capture time.
	CapturedAt time.Time `json:"captured_at"`
}

// LocationUpdate is the observer-facing shape of a report: the same
// position minus the partner identifier.
type LocationUpdate struct {
	DeliveryID string    `json:"delivery_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Update converts a report into its observer-facing form.
func (r PositionReport) Update() LocationUpdate {
	return LocationUpdate{
		DeliveryID: r.DeliveryID,
		Lat:        r.Lat,
		Lng:        r.Lng,
		Speed:      r.Speed,
		Heading:    r.Heading,
		CapturedAt: r.CapturedAt,
	}
}

// Moving reports whether the update carries a nonzero speed.
func (u LocationUpdate) Moving() bool {
	return u.Speed != nil && *u.Speed > 0
}
