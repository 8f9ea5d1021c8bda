package crawler

import "sync"

// pageBudget enforces the hard cap on successfully fetched pages.
//
// A worker reserves a slot before fetching and either commits it (success)
// or releases it (failure). Reservations never exceed the slots left, so
// the committed count can reach but never pass max, however many workers
// finish at the same moment.
type pageBudget struct {
	mu   sync.Mutex
	cond *sync.Cond

	max       int
	committed int
	reserved  int
	closed    bool

	exhausted     chan struct{}
	exhaustedOnce sync.Once

	// onExhausted runs under the budget lock in the commit that uses the
	// last slot.
	onExhausted func()
}

func newPageBudget(limit int) *pageBudget {
	b := &pageBudget{
		max:       limit,
		exhausted: make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// acquire reserves a fetch slot. It blocks while every remaining slot is
// reserved by in-flight fetches, and returns false once the budget is
// exhausted or closed.
func (b *pageBudget) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for !b.closed && b.committed < b.max && b.committed+b.reserved >= b.max {
		b.cond.Wait()
	}
	if b.closed || b.committed >= b.max {
		return false
	}
	b.reserved++
	return true
}

// commit turns a reservation into a crawled page.
// It returns the number of crawled pages after the commit.
func (b *pageBudget) commit() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reserved--
	b.committed++
	if b.committed >= b.max {
		b.closed = true
		b.exhaustedOnce.Do(func() {
			if b.onExhausted != nil {
				b.onExhausted()
			}
			close(b.exhausted)
		})
	}
	b.cond.Broadcast()
	return b.committed
}

// release gives back a reservation after a failed fetch.
func (b *pageBudget) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reserved--
	b.cond.Broadcast()
}

// close stops admitting new fetches. Reservations already held stay valid.
func (b *pageBudget) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// waitIdle blocks until no reservation is outstanding.
func (b *pageBudget) waitIdle() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.reserved > 0 {
		b.cond.Wait()
	}
}

// isExhausted reports whether max pages have been committed.
func (b *pageBudget) isExhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed >= b.max
}

// count returns the number of committed pages.
func (b *pageBudget) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed
}

// Exhausted returns a channel closed when max pages have been committed.
func (b *pageBudget) Exhausted() <-chan struct{} {
	return b.exhausted
}
