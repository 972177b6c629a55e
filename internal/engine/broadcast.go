package engine

import "sync"

// Broadcaster is the fire-and-forget change event emitted after any
// persisted strategy mutation. Presentation layers subscribe; the
// engine never waits on or inspects subscriber behavior.
type Broadcaster struct {
	mu   sync.Mutex
	subs []func()
}

// Subscribe registers fn for every future change event.
func (b *Broadcaster) Subscribe(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Notify invokes every subscriber.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	subs := make([]func(), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
