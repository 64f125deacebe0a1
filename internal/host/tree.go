package host

import "github.com/olivine-db/lsmtable/internal/memtable"

// Stats are cumulative, observational counters for a Tree. They are not part
// of any invariant; Host exposes them for the CLI's stat command and for
// tests that want to assert "a flush happened" without peeking at the
// filesystem.
type Stats struct {
	Puts          uint64
	Flushes       uint64
	ValuesFlushed uint64
}

// Tree is one named mutable table owned by a Host, plus the bookkeeping a
// host needs to flush it: how many times it has been flushed, and how many
// values have gone out the door in total.
type Tree[K comparable, V any] struct {
	name  string
	table *memtable.Table[K, V]
	stats Stats
}

// Stats returns a snapshot of this tree's cumulative counters.
func (t *Tree[K, V]) Stats() Stats {
	return t.stats
}

// Count returns the number of distinct keys currently buffered, tombstones
// included.
func (t *Tree[K, V]) Count() int {
	return t.table.Count()
}
