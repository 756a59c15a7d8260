package ports

import "doodhly-fieldops/internal/features/live/domain"

// Subscriber is one party joined to a delivery channel. Implementations
// wrap a transport connection; Send must be safe for concurrent use
// since fan-out happens from publisher goroutines.
type Subscriber interface {
	// ID uniquely identifies the subscriber within the relay.
	ID() string
	// Send forwards a location update over the subscriber's transport.
	// An error marks the transport dead; the hub evicts the subscriber.
	Send(update domain.LocationUpdate) error
}
