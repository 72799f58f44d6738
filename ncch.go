package ncchview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// headerLen is the size of the NCCH header.
const headerLen = 0x200

// maxUnitExponent bounds the media unit exponent so that any 32-bit media
// unit count converted to bytes still fits in an int64.
const maxUnitExponent = 21

// CryptMethod selects the KeyX slot used to scramble the secondary key.
// The values are the raw crypt method bytes stored in the NCCH header.
type CryptMethod uint8

const (
	CryptInitial CryptMethod = 0x00 // initial system version
	Crypt700     CryptMethod = 0x01 // system version 7.0.0-X
	Crypt930     CryptMethod = 0x0A // system version 9.3.0-X
	Crypt960     CryptMethod = 0x0B // system version 9.6.0-X
)

func (m CryptMethod) String() string {
	switch m {
	case CryptInitial:
		return "initial"
	case Crypt700:
		return "7.0.0"
	case Crypt930:
		return "9.3.0"
	case Crypt960:
		return "9.6.0"
	}
	return fmt.Sprintf("0x%02X", uint8(m))
}

// MarshalText implements encoding.TextMarshaler, also used for JSON encoding.
func (m CryptMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// NCCH flags, stored in the last byte of the header flags block.
const (
	FlagFixedKey uint8 = 0x01 // encryption uses a fixed normal key
	FlagNoRomFS  uint8 = 0x02 // the NCCH has no RomFS
	FlagNoCrypto uint8 = 0x04 // the NCCH is not encrypted
	FlagUsesSeed uint8 = 0x20 // the secondary KeyY must be remapped with a seed
)

// Platform values.
const (
	PlatformO3DS uint8 = 0x01
	PlatformN3DS uint8 = 0x02
)

// Content type bits.
const (
	TypeData      uint8 = 0x01
	TypeExe       uint8 = 0x02
	TypeSysUpdate uint8 = 0x04
	TypeManual    uint8 = 0x08
	TypeTrial     uint8 = 0x10
)

// Region locates a part of the container, in bytes relative to the start
// of the NCCH. A zero Size means the region is absent.
type Region struct {
	Offset int64
	Size   int64
}

// Header is the parsed NCCH header.
//
// All offsets and sizes are converted to bytes, with one exception kept
// from the on-disk format: ExHeaderSize is stored in bytes already and is
// never scaled by the media unit. Hashes are exposed for callers to check,
// never verified here. A Header is immutable after ParseHeader and safe to
// share between section streams.
type Header struct {
	KeyY        [16]byte // first bytes of the header signature
	ContentSize int64
	PartitionID Hex64
	MakerCode   string
	Version     uint16
	SeedCheck   [4]byte // truncated hash the title's seed must match
	TitleID     Hex64
	LogoHash    Hex
	ProductCode string

	ExHeaderHash Hex
	ExHeaderSize uint32 // bytes, unlike every other size in the header

	CryptMethod CryptMethod
	Platform    uint8
	Type        uint8
	Flags       uint8

	Plain Region
	Logo  Region
	ExeFS Region
	RomFS Region

	ExeFSHashSize int64
	RomFSHashSize int64
	ExeFSHash     Hex
	RomFSHash     Hex
}

// ParseHeader reads the NCCH header from the start of rs.
//
// Offset 0 of rs must be byte 0 of the container; the same stream is later
// handed to the section openers, which address it from that base.
func ParseHeader(rs io.ReadSeeker) (*Header, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ncch: failed to seek to header: %w", err)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(rs, header); err != nil {
		return nil, fmt.Errorf("ncch: failed to read header: %w", err)
	}

	if string(header[0x100:0x104]) != "NCCH" {
		return nil, fmt.Errorf("ncch: magic not found: %w", ErrCorrupt)
	}

	version := binary.LittleEndian.Uint16(header[0x112:])
	if version >= 3 {
		return nil, fmt.Errorf("ncch: version must be less than 3, got %d: %w", version, ErrCorrupt)
	}

	exponent := header[0x18e]
	if exponent > maxUnitExponent {
		return nil, fmt.Errorf("ncch: media unit exponent %d too large: %w", exponent, ErrCorrupt)
	}

	// Region fields count in media units; only the extended header size is
	// already in bytes.
	unit := int64(0x200) << exponent
	region := func(at int) Region {
		return Region{
			Offset: int64(binary.LittleEndian.Uint32(header[at:])) * unit,
			Size:   int64(binary.LittleEndian.Uint32(header[at+4:])) * unit,
		}
	}

	hdr := &Header{
		ContentSize:  int64(binary.LittleEndian.Uint32(header[0x104:])) * unit,
		PartitionID:  Hex64(binary.LittleEndian.Uint64(header[0x108:])),
		MakerCode:    string(header[0x110:0x112]),
		Version:      version,
		TitleID:      Hex64(binary.LittleEndian.Uint64(header[0x118:])),
		LogoHash:     Hex(header[0x130:0x150]),
		ProductCode:  string(bytes.TrimRight(header[0x150:0x160], "\x00")),
		ExHeaderHash: Hex(header[0x160:0x180]),
		ExHeaderSize: binary.LittleEndian.Uint32(header[0x180:]),

		CryptMethod: CryptMethod(header[0x18b]),
		Platform:    header[0x18c],
		Type:        header[0x18d],
		Flags:       header[0x18f],

		Plain: region(0x190),
		Logo:  region(0x198),
		ExeFS: region(0x1a0),
		RomFS: region(0x1b0),

		ExeFSHashSize: int64(binary.LittleEndian.Uint32(header[0x1a8:])) * unit,
		RomFSHashSize: int64(binary.LittleEndian.Uint32(header[0x1b8:])) * unit,
		ExeFSHash:     Hex(header[0x1c0:0x1e0]),
		RomFSHash:     Hex(header[0x1e0:0x200]),
	}
	copy(hdr.KeyY[:], header[:0x10])
	copy(hdr.SeedCheck[:], header[0x114:0x118])

	return hdr, nil
}
