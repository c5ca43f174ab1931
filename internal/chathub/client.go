package chathub

// Client is one live realtime connection. The hub owns delivery to it; the
// relay owns what it means (visitor or admin).
type Client interface {
	// GetConnID returns the server-assigned connection id.
	GetConnID() string
	// GetAdminID returns the admin id authenticated by the session cookie
	// during the handshake, or "" for anonymous connections.
	GetAdminID() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	// It is a send-only channel.
	GetSendChannel() chan<- Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the outbound channel. Safe to call more than once.
	Close()
}
