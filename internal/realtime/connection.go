package realtime

import "context"

// Connection is an established session transport. Events delivers server
// events in stream order and closes when the transport ends; a terminal
// transport failure surfaces as a final ErrorEvent before the close.
type Connection interface {
	Events() <-chan ServerEvent
	Send(ctx context.Context, cmd ClientCommand) error
	SetAudioEnabled(enabled bool)
	Close() error
}

// Credentials authenticate one connection attempt. Token is the short-lived
// key issued by the relay; Endpoint is the transport URL it was issued for.
type Credentials struct {
	Token    string
	Endpoint string
	Model    string
}

type Dialer interface {
	Connect(ctx context.Context, creds Credentials) (Connection, error)
}
