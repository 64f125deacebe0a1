package memtable

import (
	"fmt"
	"slices"

	"github.com/olivine-db/lsmtable/internal/lsm"
)

// Table is the mutable table: a capacity-bounded, key-coalescing buffer of
// values, backed by a Go map keyed on the value's extracted key. Two values
// with equal keys collide in that map; inserting the second replaces the
// first, which is the coalescing mechanism this type provides — a put over
// an existing key overwrites, a remove replaces it with a tombstone, and a
// put following a remove replaces the tombstone.
//
// A Table is not safe for concurrent use. Every method aborts the process
// via panic on a contract violation (see assert.go); the only recoverable
// failure is New rejecting a layout that cannot absorb value_count_max.
type Table[K comparable, V any] struct {
	desc lsm.Descriptor[K, V]

	values map[K]V

	valueCountMax int
}

// New constructs an empty Table. commitCountMax is the maximum number of
// values a single client commit may contribute; batchMultiple is how many
// commits may accumulate before a mandatory flush. value_count_max =
// commitCountMax * batchMultiple, and the construction-time invariant
// data_block_count(value_count_max) <= layout.DataBlockCountMax is checked
// against layout before anything is allocated.
//
// commitCountMax and batchMultiple of zero are programming errors and panic
// immediately; an invalid layout is a configuration error and is returned,
// not panicked, since it can be caught before any Table exists.
func New[K comparable, V any](desc lsm.Descriptor[K, V], commitCountMax, batchMultiple int, layout lsm.DataLayout) (*Table[K, V], error) {
	assertf(commitCountMax > 0, "commitCountMax must be > 0, got %d", commitCountMax)
	assertf(batchMultiple > 0, "batchMultiple must be > 0, got %d", batchMultiple)

	valueCountMax := lsm.ValueCountMax(commitCountMax, batchMultiple)

	if err := lsm.CheckCapacity(valueCountMax, layout); err != nil {
		return nil, fmt.Errorf("memtable: construction rejected: %w", err)
	}

	return &Table[K, V]{
		desc:          desc,
		values:        make(map[K]V, valueCountMax),
		valueCountMax: valueCountMax,
	}, nil
}

// ValueCountMax returns the maximum number of distinct keys this table may
// hold, i.e. commitCountMax * batchMultiple from construction. This is the
// required length of the scratch slice passed to SortIntoValuesAndClear.
func (t *Table[K, V]) ValueCountMax() int {
	return t.valueCountMax
}

// Count returns the number of distinct keys currently stored.
func (t *Table[K, V]) Count() int {
	return len(t.values)
}

// Get returns the stored value for k, if present, and whether it was found.
// The returned value may itself be a live value or a tombstone — callers
// inspect it (via the descriptor's IsTombstone) to distinguish a live hit
// from a deletion record. The value is returned as a copy, so later
// mutating calls on this table do not change it.
func (t *Table[K, V]) Get(k K) (V, bool) {
	v, ok := t.values[k]
	return v, ok
}

// CannotCommitBatch reports whether committing n more values would exceed
// value_count_max. Hosts are expected to call this before Put/Remove-ing a
// batch, and to flush first if it returns true.
func (t *Table[K, V]) CannotCommitBatch(n int) bool {
	assertf(n <= t.valueCountMax, "batch size %d exceeds value_count_max %d", n, t.valueCountMax)

	return len(t.values)+n > t.valueCountMax
}

// Put inserts or overwrites the value for key_of(v). After Put returns,
// Get(key_of(v)) yields a value equal to v, and Count() reflects the number
// of distinct keys present.
func (t *Table[K, V]) Put(v V) {
	k := t.desc.KeyOf(v)

	_, existed := t.values[k]

	t.values[k] = v

	if !existed {
		assertf(len(t.values) <= t.valueCountMax, "count %d exceeds value_count_max %d after put", len(t.values), t.valueCountMax)
	}
}

// Remove replaces the value for k with a tombstone. After Remove returns,
// Get(k) yields tombstone_of(k).
func (t *Table[K, V]) Remove(k K) {
	_, existed := t.values[k]

	t.values[k] = t.desc.TombstoneOf(k)

	if !existed {
		assertf(len(t.values) <= t.valueCountMax, "count %d exceeds value_count_max %d after remove", len(t.values), t.valueCountMax)
	}
}

// Clear empties the table without releasing its backing map. Rejected
// (panics) if the table is already empty — clear is only a legal transition
// from the NonEmpty state.
func (t *Table[K, V]) Clear() {
	assertf(len(t.values) > 0, "clear called on an empty table")

	clear(t.values)
}

// SortIntoValuesAndClear is the flush primitive. out must have length
// exactly ValueCountMax(); the table copies its stored values into
// out[0:Count()], sorts that prefix ascending by key, clears itself
// (retaining the map's backing storage), and returns the sorted prefix as a
// view over the caller-owned slice.
//
// The returned slice aliases out. It is only valid until out is next
// written to or freed by the caller — if a host shares one scratch buffer
// across multiple tables, the slice returned by this call is invalidated by
// the next call to SortIntoValuesAndClear for any of them.
func (t *Table[K, V]) SortIntoValuesAndClear(out []V) []V {
	assertf(len(t.values) > 0, "sort_into_values_and_clear called on an empty table")
	assertf(len(out) == t.valueCountMax, "scratch slice has length %d, want %d", len(out), t.valueCountMax)

	n := 0
	for _, v := range t.values {
		out[n] = v
		n++
	}

	result := out[:n]

	slices.SortFunc(result, func(a, b V) int {
		return t.desc.Compare(t.desc.KeyOf(a), t.desc.KeyOf(b))
	})

	clear(t.values)

	return result
}
