// Package memtable implements the mutable table: the in-memory write buffer
// that sits at the top of an LSM tree.
//
// A Table coalesces puts and removes by key, represents deletions uniformly
// as tombstones, enforces a hard capacity ceiling, and on demand drains its
// contents into a caller-supplied scratch slice, sorted in ascending key
// order. It is not thread-safe and performs no allocation once constructed;
// every precondition violation (capacity overflow, clearing an empty table,
// a wrong-sized scratch slice) is a programming error detected by panic, not
// a recoverable runtime condition.
//
// # Basic usage
//
//	table, err := memtable.New[uint64, Value](desc, commitCountMax, batchMultiple, layout)
//	if err != nil {
//	    // layout cannot absorb value_count_max; the only error this package returns
//	}
//
//	table.Put(Value{Key: 3, Payload: 10})
//	table.Remove(7)
//
//	scratch := make([]Value, table.ValueCountMax())
//	sorted := table.SortIntoValuesAndClear(scratch)
//	// sorted is ascending by key; table.Count() == 0 again
package memtable
