// Package host is the minimal LSM tree host that a mutable table drains
// into: it gates writes by consulting CannotCommitBatch, flushes a full
// table into an immutable segment, and owns the scratch buffer the drain
// writes into.
//
// A Host owns a named set of Tree instances that all share one scratch
// buffer sized to value_count_max. That sharing is deliberate: the slice
// returned by one tree's flush and the slice returned by the next tree's
// flush are backed by the very same array, so the first slice is only valid
// until the next flush call.
package host

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/olivine-db/lsmtable/internal/lsm"
	"github.com/olivine-db/lsmtable/internal/memtable"
	"github.com/olivine-db/lsmtable/internal/segment"
)

// ErrUnknownTree is returned by Flush for a tree name that has never been
// created via Host.Tree or Commit. (Commit creates a missing tree; Get
// reports a missing tree as not found.)
var ErrUnknownTree = errors.New("host: unknown tree")

// ErrNothingToFlush is returned by Flush when the named tree is empty.
var ErrNothingToFlush = errors.New("host: nothing to flush")

// ErrBatchTooLarge is returned by Commit when a single batch is larger than
// value_count_max on its own — no amount of flushing first can make it fit.
var ErrBatchTooLarge = errors.New("host: batch exceeds value_count_max")

// Segment describes one flushed, immutable, sorted run on disk.
type Segment struct {
	Path  string
	Count int
}

// Host owns every open Tree for one descriptor and config, plus the single
// scratch buffer they all flush through.
//
// A Host is not safe for concurrent use, matching memtable.Table.
type Host[K comparable, V any] struct {
	desc lsm.Descriptor[K, V]
	cfg  Config

	scratch []V
	trees   map[string]*Tree[K, V]

	nextSegment uint64
}

// New constructs a Host for the given descriptor and config, creating
// cfg.SegmentDir if it does not already exist.
func New[K comparable, V any](desc lsm.Descriptor[K, V], cfg Config) (*Host[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.SegmentDir, 0o755); err != nil {
		return nil, fmt.Errorf("host: creating segment dir %s: %w", cfg.SegmentDir, err)
	}

	valueCountMax := lsm.ValueCountMax(cfg.CommitCountMax, cfg.BatchMultiple)

	return &Host[K, V]{
		desc:    desc,
		cfg:     cfg,
		scratch: make([]V, valueCountMax),
		trees:   make(map[string]*Tree[K, V]),
	}, nil
}

// Tree returns the named tree, creating it (empty) on first reference.
func (h *Host[K, V]) Tree(name string) (*Tree[K, V], error) {
	if t, ok := h.trees[name]; ok {
		return t, nil
	}

	table, err := memtable.New[K, V](h.desc, h.cfg.CommitCountMax, h.cfg.BatchMultiple, h.cfg.Layout())
	if err != nil {
		return nil, fmt.Errorf("host: creating tree %q: %w", name, err)
	}

	t := &Tree[K, V]{name: name, table: table}
	h.trees[name] = t

	return t, nil
}

// Commit applies batch to the named tree (creating it if needed), flushing
// first if the batch would not otherwise fit. Entries in batch are applied
// via Put regardless of whether they carry a live value or a tombstone
// (constructed upstream via the descriptor's TombstoneOf) — Commit does not
// distinguish puts from removes, since the mutable table doesn't either.
//
// A batch is never partially applied: if it cannot fit even after a flush,
// Commit returns ErrBatchTooLarge and leaves the tree untouched.
func (h *Host[K, V]) Commit(name string, batch []V) error {
	t, err := h.Tree(name)
	if err != nil {
		return err
	}

	if len(batch) > t.table.ValueCountMax() {
		return fmt.Errorf("%w: tree %q batch of %d exceeds %d", ErrBatchTooLarge, name, len(batch), t.table.ValueCountMax())
	}

	if t.table.CannotCommitBatch(len(batch)) {
		if _, err := h.Flush(name); err != nil {
			return fmt.Errorf("host: flushing %q to admit batch of %d: %w", name, len(batch), err)
		}
	}

	for _, v := range batch {
		t.table.Put(v)
	}

	t.stats.Puts += uint64(len(batch))

	return nil
}

// Flush drains the named tree's mutable table into a new, sorted, immutable
// segment file and returns its metadata. Flushing an empty tree returns
// ErrNothingToFlush, since SortIntoValuesAndClear itself rejects an empty
// table.
func (h *Host[K, V]) Flush(name string) (Segment, error) {
	t, ok := h.trees[name]
	if !ok {
		return Segment{}, fmt.Errorf("%w: %q", ErrUnknownTree, name)
	}

	if t.table.Count() == 0 {
		return Segment{}, fmt.Errorf("%w: tree %q", ErrNothingToFlush, name)
	}

	sorted := t.table.SortIntoValuesAndClear(h.scratch)

	path := filepath.Join(h.cfg.SegmentDir, fmt.Sprintf("%s-%06d.seg", name, h.nextSegment))
	h.nextSegment++

	if err := segment.Write(path, sorted); err != nil {
		return Segment{}, fmt.Errorf("host: flushing tree %q: %w", name, err)
	}

	t.stats.Flushes++
	t.stats.ValuesFlushed += uint64(len(sorted))

	log.Printf("host: flushed tree %q to %s (%d values)", name, path, len(sorted))

	return Segment{Path: path, Count: len(sorted)}, nil
}

// Get looks up k in the named tree's mutable table only — it does not merge
// in values from already-flushed segments. Range queries and read-time
// merging of the tree with on-disk state are out of scope.
func (h *Host[K, V]) Get(name string, k K) (V, bool) {
	t, ok := h.trees[name]
	if !ok {
		var zero V
		return zero, false
	}

	return t.table.Get(k)
}
