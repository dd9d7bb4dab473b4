package crawler

import "sync"

// FrontierEntry is one discovered URL awaiting crawl. Entries are
// created once, consumed exactly once, and never mutated.
type FrontierEntry struct {
	URL   string
	Depth int
}

// frontier is a FIFO queue of crawl entries. Depth is a cutoff, not a
// priority: entries leave in enqueue order.
type frontier struct {
	entries []FrontierEntry
	head    int
}

func (f *frontier) push(entry FrontierEntry) {
	f.entries = append(f.entries, entry)
}

func (f *frontier) pop() (FrontierEntry, bool) {
	if f.head >= len(f.entries) {
		return FrontierEntry{}, false
	}
	entry := f.entries[f.head]
	f.entries[f.head] = FrontierEntry{}
	f.head++
	if f.head == len(f.entries) {
		f.entries = f.entries[:0]
		f.head = 0
	}
	return entry, true
}

func (f *frontier) len() int {
	return len(f.entries) - f.head
}

// visitTracker provides atomic check-and-mark over canonical URLs so no
// URL is enqueued or dequeued twice in one run, even if the loop is ever
// parallelized.
type visitTracker struct {
	seen sync.Map
}

// markIfNew stores the URL if it has not been seen before and reports
// whether it was new.
func (t *visitTracker) markIfNew(url string) bool {
	if url == "" {
		return false
	}
	_, loaded := t.seen.LoadOrStore(url, struct{}{})
	return !loaded
}
