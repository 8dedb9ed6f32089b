package hotplug

import "fmt"

// drainBarrier is the single-use countdown used while shutting down. It is
// owned by the coordinator loop.
type drainBarrier struct {
	remaining int
}

func newDrainBarrier(count int) *drainBarrier {
	if count < 0 {
		panic(fmt.Sprintf("hotplug: drain barrier initialised with %d", count))
	}
	return &drainBarrier{remaining: count}
}

// release counts one resolution and reports whether the barrier reached zero.
func (b *drainBarrier) release() bool {
	if b.remaining == 0 {
		panic("hotplug: drain barrier released below zero")
	}
	b.remaining--
	return b.remaining == 0
}

func (b *drainBarrier) open() bool { return b.remaining == 0 }
