package memtable_test

import (
	"cmp"

	"github.com/olivine-db/lsmtable/internal/lsm"
)

// value is the concrete key/value/tombstone type used throughout this
// package's tests.
type value struct {
	Key       uint64
	Payload   uint64
	Tombstone bool
}

// uint64Descriptor is the Descriptor used throughout this package's tests.
type uint64Descriptor struct{}

func (uint64Descriptor) KeyOf(v value) uint64 { return v.Key }

func (uint64Descriptor) Compare(a, b uint64) int { return cmp.Compare(a, b) }

func (uint64Descriptor) TombstoneOf(k uint64) value {
	return value{Key: k, Tombstone: true}
}

func (uint64Descriptor) IsTombstone(v value) bool { return v.Tombstone }

var _ lsm.Descriptor[uint64, value] = uint64Descriptor{}

// layoutFor returns a DataLayout that accepts exactly valueCountMax values
// in a single data block, so CheckCapacity never rejects test construction
// unless a test explicitly wants it to.
func layoutFor(valueCountMax int) lsm.DataLayout {
	return lsm.DataLayout{
		ValueCountMax:     uint32(valueCountMax),
		DataBlockCountMax: 1,
	}
}
