package hotplug

import "context"

// Source delivers OS device events.
type Source interface {
	// Subscribe starts the live event feed. The returned channel is closed once
	// ctx ends.
	Subscribe(ctx context.Context) (<-chan Event, error)
	// Enumerate lists devices already present in the given subsystems, in
	// subsystem order, as add events.
	Enumerate(ctx context.Context, subsystems []string) ([]Event, error)
}
