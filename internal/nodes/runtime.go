package nodes

// Message is one unit of work exchanged with the host flow runtime.
type Message struct {
	// Topic mirrors the originating event name or command.
	Topic string

	// Payload carries the message body. Listener nodes put a deep copy
	// here; the host may mutate it freely.
	Payload any
}

// Sender delivers a node's output message to the host runtime.
// Implementations must be safe for concurrent use; listener nodes call
// from the transport goroutine.
type Sender func(Message)

// Done signals completion of one unit of work. Actuator nodes call it
// exactly once per operation, with nil on success.
type Done func(error)
