// Package segment implements the minimal immutable, on-disk table that a
// mutable table drains into. It is kept deliberately small since the
// drain-and-sort contract under test lives in memtable, not here.
//
// A segment is a single flushed, already-sorted run: a small header, a
// gob-encoded stream of values, and a CRC32 footer over the payload.
// Segments are written once and never modified — compaction and merging
// multiple segments back together are out of scope.
package segment

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/natefinch/atomic"
)

const (
	magic   = "LSMT"
	version = uint32(1)

	headerSize = 4 + 4 + 4 // magic + version + count
)

// ErrCorrupt indicates a segment file is too short to contain a valid
// header, has a bad magic, failed its checksum, or holds a payload that does
// not decode to the declared number of values.
var ErrCorrupt = errors.New("segment: corrupt")

// ErrVersionMismatch indicates a segment file was written by an
// incompatible writer version.
var ErrVersionMismatch = errors.New("segment: version mismatch")

// Write gob-encodes the already-sorted values (as returned by
// memtable.Table.SortIntoValuesAndClear) and atomically writes them to
// path via a temp-file-then-rename, exactly as the wider pack's
// atomic-write helpers do it — the file at path either
// doesn't exist, or exists complete; there is no partially-written state an
// observer can see.
//
// values must already be sorted; Write does not sort or validate order,
// since that is the mutable table's responsibility, not this package's.
func Write[V any](path string, values []V) error {
	var payload bytes.Buffer

	enc := gob.NewEncoder(&payload)
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("segment: encoding %d values: %w", len(values), err)
	}

	checksum := crc32.ChecksumIEEE(payload.Bytes())

	var out bytes.Buffer

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], version)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(values)))

	out.Write(header)
	out.Write(payload.Bytes())

	footer := make([]byte, 4)
	binary.LittleEndian.PutUint32(footer, checksum)
	out.Write(footer)

	if err := atomic.WriteFile(path, &out); err != nil {
		return fmt.Errorf("segment: writing %s: %w", path, err)
	}

	return nil
}

// Read loads a segment written by Write and decodes it back into a slice of
// V, verifying the header magic/version and the CRC32 footer before
// trusting the payload.
func Read[V any](path string) ([]V, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is host-controlled
	if err != nil {
		return nil, fmt.Errorf("segment: reading %s: %w", path, err)
	}

	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("%w: %s is too short (%d bytes)", ErrCorrupt, path, len(data))
	}

	if string(data[0:4]) != magic {
		return nil, fmt.Errorf("%w: %s has bad magic", ErrCorrupt, path)
	}

	gotVersion := binary.LittleEndian.Uint32(data[4:8])
	if gotVersion != version {
		return nil, fmt.Errorf("%w: %s is version %d, want %d", ErrVersionMismatch, path, gotVersion, version)
	}

	count := binary.LittleEndian.Uint32(data[8:12])

	payload := data[headerSize : len(data)-4]
	wantChecksum := binary.LittleEndian.Uint32(data[len(data)-4:])

	if got := crc32.ChecksumIEEE(payload); got != wantChecksum {
		return nil, fmt.Errorf("%w: %s checksum %08x != %08x", ErrCorrupt, path, got, wantChecksum)
	}

	var values []V

	dec := gob.NewDecoder(bufio.NewReader(bytes.NewReader(payload)))
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding payload: %v", ErrCorrupt, path, err)
	}

	if uint32(len(values)) != count {
		return nil, fmt.Errorf("%w: %s declared %d values, decoded %d", ErrCorrupt, path, count, len(values))
	}

	return values, nil
}
