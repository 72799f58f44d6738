package ncchview

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/connesc/ncchview/ctrutil"
)

// SeedDB is an in-memory seed database, the seeds that 9.6.0 titles need
// to rebuild their secondary KeyY. It is usually loaded from a seeddb.bin
// gathered from a console.
type SeedDB struct {
	seeds map[uint64][16]byte
}

var _ SeedSource = &SeedDB{}

// ParseSeedDB reads a seeddb.bin: an entry count followed by padding, then
// 0x20-byte entries of title ID, seed and padding.
func ParseSeedDB(input io.Reader) (*SeedDB, error) {
	reader := ctrutil.NewReader(input)

	header := make([]byte, 0x10)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("seeddb: failed to read header: %w", err)
	}
	count := binary.LittleEndian.Uint32(header)

	// The count is untrusted until the entries have actually been read, so
	// it only hints the allocation up to a small cap.
	db := &SeedDB{
		seeds: make(map[uint64][16]byte, min(count, 1024)),
	}

	entry := make([]byte, 0x20)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(reader, entry); err != nil {
			return nil, fmt.Errorf("seeddb: failed to read entry %d: %w", i, err)
		}

		var seed [16]byte
		copy(seed[:], entry[0x8:0x18])
		db.seeds[binary.LittleEndian.Uint64(entry)] = seed
	}

	err := reader.Discard(1)
	if err == nil {
		return nil, fmt.Errorf("seeddb: extraneous data after %d bytes: %w", reader.Offset(), ErrCorrupt)
	} else if err != io.EOF {
		return nil, fmt.Errorf("seeddb: failed to check extraneous data: %w", err)
	}

	return db, nil
}

// Len returns the number of known seeds.
func (db *SeedDB) Len() int {
	return len(db.seeds)
}

// Seed returns the seed of a title, if known.
func (db *SeedDB) Seed(titleID uint64) ([16]byte, bool) {
	seed, ok := db.seeds[titleID]
	return seed, ok
}
