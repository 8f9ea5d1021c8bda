package crawler

import "sync"

// Entry is a URL waiting to be visited, with its link distance from the seed.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is the FIFO work queue shared by all workers.
//
// Entries are handed out level by level: an entry at depth d is only popped
// once no entry shallower than d is in flight. Children are therefore always
// discovered from their shallowest parent first, and the set of pages reached
// within the depth budget does not depend on the number of workers.
//
// Design decision: We gate on depth rather than trusting FIFO order alone
// because:
//  1. With several workers a deep page can finish before a shallow sibling
//  2. The first discovery of a URL decides its depth (deduplication happens at enqueue)
//  3. A URL seen first at the wrong depth could fall outside the depth budget
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue []Entry

	// inFlight counts popped entries not yet marked Done, per depth.
	inFlight      map[int]int
	inFlightTotal int

	// discarded counts entries dropped without being processed. A frontier
	// that dropped anything never reports drained.
	discarded int

	closed  bool
	drained bool
	drainCh chan struct{}
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		queue:    make([]Entry, 0),
		inFlight: make(map[int]int),
		drainCh:  make(chan struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push appends an entry. It returns false, and does nothing, once the
// frontier has been closed or has drained.
func (f *Frontier) Push(e Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		f.discarded++
		return false
	}
	f.queue = append(f.queue, e)
	f.cond.Broadcast()
	return true
}

// Pop removes and returns the next entry, blocking while none is available.
// It returns false when the frontier is closed or drained.
// Every popped entry must be released with Done.
func (f *Frontier) Pop() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return Entry{}, false
		}
		if len(f.queue) > 0 && !f.shallowerInFlight(f.queue[0].Depth) {
			e := f.queue[0]
			f.queue[0] = Entry{}
			f.queue = f.queue[1:]
			f.inFlight[e.Depth]++
			f.inFlightTotal++
			return e, true
		}
		f.cond.Wait()
	}
}

// Done marks a popped entry as finished. Children discovered while
// processing the entry must be pushed before Done is called.
func (f *Frontier) Done(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.release(e)
	if len(f.queue) == 0 && f.inFlightTotal == 0 && f.discarded == 0 && !f.closed {
		f.drained = true
		f.closed = true
		close(f.drainCh)
	}
	f.cond.Broadcast()
}

// Discard releases a popped entry that was dropped without being
// processed. After a Discard the frontier can no longer drain.
func (f *Frontier) Discard(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.release(e)
	f.discarded++
	f.cond.Broadcast()
}

// Close stops the frontier. Blocked and future Pop calls return false and
// pending entries are discarded.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// IsDrained reports whether the frontier ran out of work: nothing pending
// and nothing in flight. A frontier stopped with Close is not drained.
func (f *Frontier) IsDrained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drained
}

// Drained returns a channel closed when the frontier drains.
func (f *Frontier) Drained() <-chan struct{} {
	return f.drainCh
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Discarded returns the number of entries dropped without being processed,
// including the entries still pending.
func (f *Frontier) Discarded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discarded + len(f.queue)
}

// InFlight returns the number of popped entries not yet marked Done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlightTotal
}

func (f *Frontier) shallowerInFlight(depth int) bool {
	for d := range f.inFlight {
		if d < depth {
			return true
		}
	}
	return false
}

func (f *Frontier) release(e Entry) {
	if f.inFlight[e.Depth] > 0 {
		f.inFlight[e.Depth]--
		if f.inFlight[e.Depth] == 0 {
			delete(f.inFlight, e.Depth)
		}
		f.inFlightTotal--
	}
}
