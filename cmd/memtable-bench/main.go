// Command memtable-bench drives a host.Host with generated load and reports
// commit/flush throughput. Its batches are drawn from a single mmap'd arena
// rather than an ordinary make([]record, n) slice, so the backing capacity
// really is preallocated once up front, by an external mapping rather than a
// slice the Go runtime simply happens not to grow.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/olivine-db/lsmtable/internal/host"
	"github.com/olivine-db/lsmtable/internal/lsm"
)

// record is the fixed-layout value type the arena is cast to. Payload is a
// fixed-size array (not a slice or string) so the whole value lives inline
// in the mmap'd region with no heap pointers escaping it.
type record struct {
	Key     uint64
	Payload [32]byte
}

type recordDescriptor struct{}

func (recordDescriptor) KeyOf(v record) uint64      { return v.Key }
func (recordDescriptor) Compare(a, b uint64) int     { return compareUint64(a, b) }
func (recordDescriptor) TombstoneOf(k uint64) record { return record{Key: k, Payload: [32]byte{0xFF}} }
func (recordDescriptor) IsTombstone(v record) bool   { return v.Payload[0] == 0xFF }

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// config holds every benchmark knob in one flat struct, populated by pflag
// before the run starts.
type config struct {
	SegmentDir     string
	Trees          int
	CommitCountMax int
	BatchMultiple  int
	Commits        int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config{}

	pflag.StringVar(&cfg.SegmentDir, "segment-dir", mustTempDir(), "directory flushed segments are written to")
	pflag.IntVar(&cfg.Trees, "trees", 1, "number of trees to spread load across")
	pflag.IntVar(&cfg.CommitCountMax, "commit-count-max", 256, "maximum values per commit")
	pflag.IntVar(&cfg.BatchMultiple, "batch-multiple", 4, "commits buffered before a mandatory flush")
	pflag.IntVar(&cfg.Commits, "commits", 1000, "number of commits to run per tree")
	pflag.Parse()

	hostCfg := host.Config{
		SegmentDir:        cfg.SegmentDir,
		CommitCountMax:    cfg.CommitCountMax,
		BatchMultiple:     cfg.BatchMultiple,
		DataValueCountMax: cfg.CommitCountMax * cfg.BatchMultiple,
		DataBlockCountMax: 1,
	}

	h, err := host.New[uint64, record](recordDescriptor{}, hostCfg)
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}

	valueCountMax := lsm.ValueCountMax(cfg.CommitCountMax, cfg.BatchMultiple)

	arena, err := newArena(valueCountMax)
	if err != nil {
		return fmt.Errorf("mapping arena: %w", err)
	}
	defer arena.close()

	var totalPuts, totalFlushes int

	start := time.Now()

	for tree := 0; tree < cfg.Trees; tree++ {
		treeName := fmt.Sprintf("tree-%03d", tree)

		key := uint64(0)

		for c := 0; c < cfg.Commits; c++ {
			batch := arena.records[:cfg.CommitCountMax]
			for i := range batch {
				batch[i] = record{Key: key}
				binary.LittleEndian.PutUint64(batch[i].Payload[8:16], key)
				key++
			}

			if err := h.Commit(treeName, batch); err != nil {
				return fmt.Errorf("commit %d on %s: %w", c, treeName, err)
			}

			totalPuts += len(batch)
		}

		t, err := h.Tree(treeName)
		if err != nil {
			return err
		}

		if t.Count() > 0 {
			if _, err := h.Flush(treeName); err != nil {
				return fmt.Errorf("final flush on %s: %w", treeName, err)
			}
		}

		totalFlushes += int(t.Stats().Flushes)
	}

	elapsed := time.Since(start)

	fmt.Printf("trees=%d commits/tree=%d commit_count_max=%d batch_multiple=%d\n", cfg.Trees, cfg.Commits, cfg.CommitCountMax, cfg.BatchMultiple)
	fmt.Printf("puts=%d flushes=%d elapsed=%s puts/sec=%.0f\n", totalPuts, totalFlushes, elapsed, float64(totalPuts)/elapsed.Seconds())

	return nil
}

func mustTempDir() string {
	dir, err := os.MkdirTemp("", "memtable-bench-")
	if err != nil {
		panic(err)
	}

	return dir
}

// arena is a real mmap-backed region, sized to hold valueCountMax records,
// reinterpreted as a []record with no further allocation.
type arena struct {
	data    []byte
	records []record
}

func newArena(valueCountMax int) (*arena, error) {
	size := valueCountMax * int(unsafe.Sizeof(record{}))

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	records := unsafe.Slice((*record)(unsafe.Pointer(&data[0])), valueCountMax)

	return &arena{data: data, records: records}, nil
}

func (a *arena) close() {
	if a.data != nil {
		_ = unix.Munmap(a.data)
	}
}
