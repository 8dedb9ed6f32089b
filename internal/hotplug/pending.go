package hotplug

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token is a one-shot cancellation capability handed to an open attempt.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken returns an unsignalled token.
func NewToken() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel signals the token. Repeated calls are harmless.
func (t *Token) Cancel() { t.cancel() }

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool { return t.ctx.Err() != nil }

// Context is done once the token is signalled.
func (t *Token) Context() context.Context { return t.ctx }

type pendingEntry struct {
	name      string
	token     *Token
	attemptID string
	started   time.Time
	// deferred holds an add event that arrived while this attempt was already
	// cancelled; it is replayed once the attempt resolves.
	deferred *Event
}

// PendingSet tracks device names with an open attempt in flight.
type PendingSet struct {
	entries map[string]*pendingEntry
	order   []string
	onBusy  func(busy bool)
}

// NewPendingSet returns an empty set. onBusy, when non-nil, is called on the
// empty to non-empty and non-empty to empty transitions only.
func NewPendingSet(onBusy func(busy bool)) *PendingSet {
	return &PendingSet{entries: make(map[string]*pendingEntry), onBusy: onBusy}
}

// Add registers a new attempt for name. Adding a name that is already pending
// is a programming error and panics.
func (p *PendingSet) Add(name string, token *Token) *pendingEntry {
	if _, exists := p.entries[name]; exists {
		panic(fmt.Sprintf("hotplug: %s is already pending", name))
	}
	entry := &pendingEntry{
		name:      name,
		token:     token,
		attemptID: uuid.NewString(),
		started:   time.Now(),
	}
	p.entries[name] = entry
	p.order = append(p.order, name)
	if len(p.entries) == 1 && p.onBusy != nil {
		p.onBusy(true)
	}
	return entry
}

// Find returns the attempt pending for name, or nil.
func (p *PendingSet) Find(name string) *pendingEntry {
	return p.entries[name]
}

// Cancel signals the token pending for name, if any.
func (p *PendingSet) Cancel(name string) {
	entry, ok := p.entries[name]
	if !ok {
		return
	}
	entry.token.Cancel()
}

// Remove forgets name and releases its token.
func (p *PendingSet) Remove(name string) {
	entry, ok := p.entries[name]
	if !ok {
		return
	}
	delete(p.entries, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	entry.token.Cancel()
	if len(p.entries) == 0 && p.onBusy != nil {
		p.onBusy(false)
	}
}

// Len is the number of attempts in flight.
func (p *PendingSet) Len() int { return len(p.entries) }

// Names lists pending names in the order their attempts started.
func (p *PendingSet) Names() []string {
	return append([]string(nil), p.order...)
}
