package host_test

import (
	"cmp"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olivine-db/lsmtable/internal/host"
	"github.com/olivine-db/lsmtable/internal/segment"
)

type record struct {
	Key     uint64
	Payload uint64
	Deleted bool
}

type recordDescriptor struct{}

func (recordDescriptor) KeyOf(v record) uint64      { return v.Key }
func (recordDescriptor) Compare(a, b uint64) int     { return cmp.Compare(a, b) }
func (recordDescriptor) TombstoneOf(k uint64) record { return record{Key: k, Deleted: true} }
func (recordDescriptor) IsTombstone(v record) bool   { return v.Deleted }

func testConfig(t *testing.T) host.Config {
	t.Helper()

	return host.Config{
		SegmentDir:        t.TempDir(),
		CommitCountMax:    4,
		BatchMultiple:     1,
		DataValueCountMax: 4,
		DataBlockCountMax: 1,
	}
}

func TestCommitAndGet(t *testing.T) {
	h, err := host.New[uint64, record](recordDescriptor{}, testConfig(t))
	require.NoError(t, err)

	require.NoError(t, h.Commit("widgets", []record{
		{Key: 1, Payload: 10},
		{Key: 2, Payload: 20},
	}))

	got, ok := h.Get("widgets", 1)
	require.True(t, ok)
	require.Equal(t, record{Key: 1, Payload: 10}, got)
}

func TestCommitFlushesToAdmitBatch(t *testing.T) {
	h, err := host.New[uint64, record](recordDescriptor{}, testConfig(t))
	require.NoError(t, err)

	require.NoError(t, h.Commit("widgets", []record{
		{Key: 1}, {Key: 2}, {Key: 3},
	}))

	tree, err := h.Tree("widgets")
	require.NoError(t, err)
	require.Equal(t, uint64(0), tree.Stats().Flushes)

	// This batch of 2 doesn't fit alongside the 3 already buffered
	// (value_count_max is 4), so Commit must flush first.
	require.NoError(t, h.Commit("widgets", []record{
		{Key: 4}, {Key: 5},
	}))

	require.Equal(t, uint64(1), tree.Stats().Flushes)
	require.Equal(t, 2, tree.Count())
}

func TestCommitRejectsOversizedBatch(t *testing.T) {
	h, err := host.New[uint64, record](recordDescriptor{}, testConfig(t))
	require.NoError(t, err)

	err = h.Commit("widgets", []record{{Key: 1}, {Key: 2}, {Key: 3}, {Key: 4}, {Key: 5}})
	require.ErrorIs(t, err, host.ErrBatchTooLarge)
}

func TestFlushWritesReadableSegment(t *testing.T) {
	cfg := testConfig(t)
	h, err := host.New[uint64, record](recordDescriptor{}, cfg)
	require.NoError(t, err)

	require.NoError(t, h.Commit("widgets", []record{{Key: 2, Payload: 2}, {Key: 1, Payload: 1}}))

	seg, err := h.Flush("widgets")
	require.NoError(t, err)
	require.Equal(t, 2, seg.Count)
	require.Equal(t, filepath.Join(cfg.SegmentDir, "widgets-000000.seg"), seg.Path)

	values, err := segment.Read[record](seg.Path)
	require.NoError(t, err)
	require.Equal(t, []record{{Key: 1, Payload: 1}, {Key: 2, Payload: 2}}, values)
}

func TestFlushEmptyTreeFails(t *testing.T) {
	h, err := host.New[uint64, record](recordDescriptor{}, testConfig(t))
	require.NoError(t, err)

	_, err = h.Tree("widgets")
	require.NoError(t, err)

	_, err = h.Flush("widgets")
	require.ErrorIs(t, err, host.ErrNothingToFlush)
}

func TestFlushUnknownTreeFails(t *testing.T) {
	h, err := host.New[uint64, record](recordDescriptor{}, testConfig(t))
	require.NoError(t, err)

	_, err = h.Flush("ghost")
	require.ErrorIs(t, err, host.ErrUnknownTree)
}

// TestSharedScratchAliasing asserts the scratch-buffer aliasing rule made
// concrete: two trees on the same Host share one scratch buffer, so a
// segment written from one flush must be durable on disk (not just a view
// over a slice) before the next tree's flush overwrites that same backing
// array.
func TestSharedScratchAliasing(t *testing.T) {
	cfg := testConfig(t)
	h, err := host.New[uint64, record](recordDescriptor{}, cfg)
	require.NoError(t, err)

	require.NoError(t, h.Commit("a", []record{{Key: 1, Payload: 100}}))
	require.NoError(t, h.Commit("b", []record{{Key: 2, Payload: 200}}))

	segA, err := h.Flush("a")
	require.NoError(t, err)

	// Flushing b reuses the same scratch buffer a's flush just wrote into.
	segB, err := h.Flush("b")
	require.NoError(t, err)

	valuesA, err := segment.Read[record](segA.Path)
	require.NoError(t, err)
	require.Equal(t, []record{{Key: 1, Payload: 100}}, valuesA)

	valuesB, err := segment.Read[record](segB.Path)
	require.NoError(t, err)
	require.Equal(t, []record{{Key: 2, Payload: 200}}, valuesB)
}
