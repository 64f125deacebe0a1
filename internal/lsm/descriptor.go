// Package lsm defines the Table descriptor contract that parameterizes a
// mutable table: the key/value types, the key ordering, tombstone
// construction, and the disk-block capacity constants a downstream
// immutable table imposes.
//
// Nothing in this package touches a live buffer. It is the dependency
// surface the memtable package consumes generically, plus the capacity
// arithmetic that is shared between construction-time validation (here)
// and the mutable table's own runtime assertions (in memtable).
package lsm

import "fmt"

// Descriptor supplies everything a mutable table needs to operate on a
// concrete key/value pair, generically, at compile time.
//
// K must be comparable because it is used directly as a Go map key; V
// carries K embedded in it (KeyOf extracts it back out).
type Descriptor[K comparable, V any] interface {
	// KeyOf extracts the key embedded in a value.
	KeyOf(v V) K

	// Compare returns <0, 0, or >0 as k1 sorts before, equal to, or after k2.
	Compare(k1, k2 K) int

	// TombstoneOf constructs a sentinel value carrying key k, marked as a
	// deletion. IsTombstone must report true for any value it returns.
	TombstoneOf(k K) V

	// IsTombstone reports whether v represents a deletion record. It never
	// needs to be called by the mutable table itself (the buffer never asks
	// whether what it's holding is a tombstone) but is part of the
	// descriptor contract so hosts and tests can tell live values from
	// deletion records in a drained, sorted run.
	IsTombstone(v V) bool
}

// DataLayout describes the downstream immutable table's block geometry:
// how many values fit in one on-disk data block, and how many data blocks
// the table may ever hold. A mutable table's capacity is validated against
// this at construction time so it can never overflow the table it drains
// into.
type DataLayout struct {
	// ValueCountMax is the number of values a single on-disk data block can
	// hold.
	ValueCountMax uint32

	// DataBlockCountMax is the maximum number of data blocks the target
	// immutable table may contain.
	DataBlockCountMax uint32
}

// ValueCountMax computes value_count_max = commit_count_max * batch_multiple,
// the maximum number of values a mutable table may hold before a mandatory
// flush.
//
// commitCountMax and batchMultiple must both be > 0; callers are expected to
// validate that themselves (construction-time programming errors, not data
// this function should silently tolerate).
func ValueCountMax(commitCountMax, batchMultiple int) int {
	return commitCountMax * batchMultiple
}

// DataBlockCount returns ceil(valueCountMax / layout.ValueCountMax): the
// number of on-disk data blocks required to hold valueCountMax values under
// the given layout.
func DataBlockCount(valueCountMax int, layout DataLayout) int {
	perBlock := int(layout.ValueCountMax)
	if perBlock <= 0 {
		return 0
	}

	return (valueCountMax + perBlock - 1) / perBlock
}

// CheckCapacity validates the construction-time invariant that a mutable
// table must never hold more values than the immutable table it drains into
// can absorb. It returns an error (not a panic) because this is meant to be
// checked once, at host-configuration time, before a Table is ever built —
// a bad config should fail cleanly, not abort the process.
func CheckCapacity(valueCountMax int, layout DataLayout) error {
	blocks := DataBlockCount(valueCountMax, layout)

	if layout.ValueCountMax == 0 {
		return fmt.Errorf("lsm: data layout ValueCountMax must be > 0")
	}

	if uint32(blocks) > layout.DataBlockCountMax {
		return fmt.Errorf(
			"lsm: value_count_max %d needs %d data blocks, exceeds data_block_count_max %d",
			valueCountMax, blocks, layout.DataBlockCountMax,
		)
	}

	return nil
}
