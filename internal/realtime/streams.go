package realtime

// Named realtime streams used across the platform.
const (
	// StreamMatches carries new-request match events to professionals.
	StreamMatches = "matches"
	// StreamNotifications carries persisted in-app notification events.
	StreamNotifications = "notifications"
)
