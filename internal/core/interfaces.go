package core

// Frame is a marshaled wire message, ready to hand to a transport.
type Frame []byte

// ConnID identifies one live transport connection. A reconnect gets a new one.
type ConnID string

// PeerLink abstracts the outbound half of a connection.
// Owned by the adapter; the adapter must Close() it.
type PeerLink interface {
	TrySend(Frame) error
	Close()
}
