//go:build debug

package channel

// New creates a new channel.
// In debug builds, this returns an unbuffered channel (ignores size) so
// event handoff is deterministic under test.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
