// Package channel provides generic channel interfaces for decoupled
// communication between the overlay callbacks and the recording pipeline.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	// TrySend is a non-blocking send; returns false when the value was
	// dropped because the buffer is full (or no receiver is waiting).
	TrySend(T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
