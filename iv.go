package ncchview

import (
	"encoding/binary"
	"fmt"
)

// Section identifies an NCCH section for IV derivation. The values are the
// one-byte counter tags used by NCCH versions 0 and 2.
type Section uint8

const (
	SectionExHeader Section = 1
	// The whole ExeFS region runs on a single keystream and files are
	// reached by seeking into it, so files share the header's tag. They
	// differ in key slot, not in IV.
	SectionExeFSHeader Section = 2
	SectionExeFSFile   Section = 2
	SectionRomFS       Section = 3
)

// SectionIV derives the initial AES-CTR counter for a section.
//
// The high 8 bytes are always the partition ID in big-endian order. The
// low 8 bytes depend on the NCCH version: versions 0 and 2 store the
// section tag in byte 8, version 1 stores the big-endian byte offset of
// the section instead.
func (h *Header) SectionIV(s Section) ([16]byte, error) {
	var iv [16]byte

	switch s {
	case SectionExHeader, SectionExeFSHeader, SectionRomFS:
	default:
		return iv, fmt.Errorf("ncch: unknown section %d: %w", s, ErrCorrupt)
	}

	binary.BigEndian.PutUint64(iv[:], uint64(h.PartitionID))

	switch h.Version {
	case 0, 2:
		iv[8] = byte(s)
	case 1:
		var offset int64
		switch s {
		case SectionExHeader:
			offset = headerLen
		case SectionExeFSHeader:
			offset = h.ExeFS.Offset
		case SectionRomFS:
			offset = h.RomFS.Offset
		}
		binary.BigEndian.PutUint64(iv[8:], uint64(offset))
	default:
		return iv, fmt.Errorf("ncch: no IV layout for version %d: %w", h.Version, ErrCorrupt)
	}

	return iv, nil
}
