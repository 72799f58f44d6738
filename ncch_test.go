package ncchview

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// headerOpts drive the synthetic NCCH header built by makeHeader. Extents
// are given in bytes and converted to media units.
type headerOpts struct {
	keyY         [16]byte
	contentSize  int64
	partitionID  uint64
	makerCode    string
	version      uint16
	seedCheck    [4]byte
	titleID      uint64
	productCode  string
	exheaderSize uint32
	cryptMethod  CryptMethod
	platform     uint8
	contentType  uint8
	flags        uint8
	plain        Region
	logo         Region
	exefs        Region
	romfs        Region
	mutate       func(header []byte)
}

func makeHeader(t *testing.T, opts headerOpts) []byte {
	t.Helper()

	if opts.makerCode == "" {
		opts.makerCode = "00"
	}
	if opts.platform == 0 {
		opts.platform = PlatformO3DS
	}
	if opts.contentType == 0 {
		opts.contentType = TypeExe
	}

	header := make([]byte, headerLen)
	copy(header, opts.keyY[:])
	copy(header[0x100:], "NCCH")
	binary.LittleEndian.PutUint32(header[0x104:], mediaUnits(t, opts.contentSize))
	binary.LittleEndian.PutUint64(header[0x108:], opts.partitionID)
	copy(header[0x110:], opts.makerCode)
	binary.LittleEndian.PutUint16(header[0x112:], opts.version)
	copy(header[0x114:], opts.seedCheck[:])
	binary.LittleEndian.PutUint64(header[0x118:], opts.titleID)
	copy(header[0x150:], opts.productCode)
	binary.LittleEndian.PutUint32(header[0x180:], opts.exheaderSize)
	header[0x18b] = byte(opts.cryptMethod)
	header[0x18c] = opts.platform
	header[0x18d] = opts.contentType
	header[0x18f] = opts.flags

	putRegion := func(at int, region Region) {
		binary.LittleEndian.PutUint32(header[at:], mediaUnits(t, region.Offset))
		binary.LittleEndian.PutUint32(header[at+4:], mediaUnits(t, region.Size))
	}
	putRegion(0x190, opts.plain)
	putRegion(0x198, opts.logo)
	putRegion(0x1a0, opts.exefs)
	putRegion(0x1b0, opts.romfs)

	if opts.mutate != nil {
		opts.mutate(header)
	}
	return header
}

func mediaUnits(t *testing.T, n int64) uint32 {
	t.Helper()
	require.Zero(t, n%0x200, "fixture extents must be media unit aligned")
	return uint32(n / 0x200)
}

// encryptCTR mirrors the console's section encryption for fixtures:
// AES-CTR over data, with the counter advanced to the byte position pos
// within the section. The counter is advanced by repeated increments to
// stay independent from the arithmetic under test.
func encryptCTR(t *testing.T, key [16]byte, iv [16]byte, pos int64, data []byte) []byte {
	t.Helper()
	require.Zero(t, pos%aes.BlockSize, "fixture writes must be block aligned")

	block, err := aes.NewCipher(key[:])
	require.NoError(t, err)

	counter := iv
	for n := pos / aes.BlockSize; n > 0; n-- {
		for i := len(counter) - 1; i >= 0; i-- {
			counter[i]++
			if counter[i] != 0 {
				break
			}
		}
	}

	ciphertext := make([]byte, len(data))
	cipher.NewCTR(block, counter[:]).XORKeyStream(ciphertext, data)
	return ciphertext
}

func readAll(t *testing.T, stream SectionStream) []byte {
	t.Helper()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	return data
}

func TestParseHeaderFields(t *testing.T) {
	keyY := [16]byte{0xaa, 0xbb, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	header := makeHeader(t, headerOpts{
		keyY:         keyY,
		contentSize:  0x4a00,
		partitionID:  0x0004000000123400,
		makerCode:    "01",
		version:      2,
		seedCheck:    [4]byte{0xca, 0xfe, 0xba, 0xbe},
		titleID:      0x0004000000123400,
		productCode:  "CTR-P-TEST",
		exheaderSize: 0x400,
		cryptMethod:  Crypt700,
		platform:     PlatformN3DS,
		contentType:  TypeExe | TypeData,
		flags:        FlagNoRomFS,
		plain:        Region{Offset: 0x800, Size: 0x200},
		logo:         Region{Offset: 0x600, Size: 0x200},
		exefs:        Region{Offset: 0xa00, Size: 0x3c00},
		romfs:        Region{Offset: 0x4600, Size: 0x400},
		mutate: func(header []byte) {
			for i := 0x130; i < 0x150; i++ {
				header[i] = 0x11 // logo hash
			}
			for i := 0x160; i < 0x180; i++ {
				header[i] = 0x22 // exheader hash
			}
			binary.LittleEndian.PutUint32(header[0x1a8:], 2) // exefs hash size
			binary.LittleEndian.PutUint32(header[0x1b8:], 1) // romfs hash size
			for i := 0x1c0; i < 0x1e0; i++ {
				header[i] = 0x33 // exefs hash
			}
			for i := 0x1e0; i < 0x200; i++ {
				header[i] = 0x44 // romfs hash
			}
		},
	})

	hdr, err := ParseHeader(bytes.NewReader(header))
	require.NoError(t, err)

	require.Equal(t, keyY, hdr.KeyY)
	require.Equal(t, int64(0x4a00), hdr.ContentSize)
	require.Equal(t, "0004000000123400", hdr.PartitionID.String())
	require.Equal(t, "01", hdr.MakerCode)
	require.Equal(t, uint16(2), hdr.Version)
	require.Equal(t, [4]byte{0xca, 0xfe, 0xba, 0xbe}, hdr.SeedCheck)
	require.Equal(t, "0004000000123400", hdr.TitleID.String())
	require.Equal(t, "CTR-P-TEST", hdr.ProductCode)
	require.Equal(t, uint32(0x400), hdr.ExHeaderSize)
	require.Equal(t, Crypt700, hdr.CryptMethod)
	require.Equal(t, PlatformN3DS, hdr.Platform)
	require.Equal(t, TypeExe|TypeData, hdr.Type)
	require.Equal(t, FlagNoRomFS, hdr.Flags)

	require.Equal(t, Region{Offset: 0x800, Size: 0x200}, hdr.Plain)
	require.Equal(t, Region{Offset: 0x600, Size: 0x200}, hdr.Logo)
	require.Equal(t, Region{Offset: 0xa00, Size: 0x3c00}, hdr.ExeFS)
	require.Equal(t, Region{Offset: 0x4600, Size: 0x400}, hdr.RomFS)
	require.Equal(t, int64(0x400), hdr.ExeFSHashSize)
	require.Equal(t, int64(0x200), hdr.RomFSHashSize)

	require.Equal(t, bytes.Repeat([]byte{0x11}, 0x20), []byte(hdr.LogoHash))
	require.Equal(t, bytes.Repeat([]byte{0x22}, 0x20), []byte(hdr.ExHeaderHash))
	require.Equal(t, bytes.Repeat([]byte{0x33}, 0x20), []byte(hdr.ExeFSHash))
	require.Equal(t, bytes.Repeat([]byte{0x44}, 0x20), []byte(hdr.RomFSHash))
}

func TestParseHeaderMediaUnits(t *testing.T) {
	// A non-zero exponent scales every extent except the extended header
	// size, which is stored in bytes.
	header := makeHeader(t, headerOpts{
		contentSize:  0x4a00,
		exheaderSize: 0x400,
		romfs:        Region{Offset: 0x4600, Size: 0x400},
		mutate: func(header []byte) {
			header[0x18e] = 2
		},
	})

	hdr, err := ParseHeader(bytes.NewReader(header))
	require.NoError(t, err)

	require.Equal(t, int64(0x4a00*4), hdr.ContentSize)
	require.Equal(t, Region{Offset: 0x4600 * 4, Size: 0x400 * 4}, hdr.RomFS)
	require.Equal(t, uint32(0x400), hdr.ExHeaderSize)

	// The largest accepted exponent still parses.
	header = makeHeader(t, headerOpts{
		contentSize: 0x200,
		mutate: func(header []byte) {
			header[0x18e] = maxUnitExponent
		},
	})

	hdr, err = ParseHeader(bytes.NewReader(header))
	require.NoError(t, err)
	require.Equal(t, int64(0x200)<<maxUnitExponent, hdr.ContentSize)
}

func TestParseHeaderBadUnitExponent(t *testing.T) {
	// Exponents past the bound would overflow the byte conversion of
	// 32-bit extents and misparse every region, so they are rejected.
	for _, exponent := range []byte{maxUnitExponent + 1, 54, 0xff} {
		header := makeHeader(t, headerOpts{
			contentSize: 0x4a00,
			mutate: func(header []byte) {
				header[0x18e] = exponent
			},
		})

		_, err := ParseHeader(bytes.NewReader(header))
		require.ErrorIs(t, err, ErrCorrupt)
	}
}

func TestParseHeaderBadMagic(t *testing.T) {
	header := makeHeader(t, headerOpts{
		mutate: func(header []byte) {
			header[0x100] = 'X'
		},
	})

	_, err := ParseHeader(bytes.NewReader(header))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestParseHeaderBadVersion(t *testing.T) {
	header := makeHeader(t, headerOpts{version: 3})

	_, err := ParseHeader(bytes.NewReader(header))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestParseHeaderTruncated(t *testing.T) {
	header := makeHeader(t, headerOpts{})

	_, err := ParseHeader(bytes.NewReader(header[:0x1ff]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseHeaderRewindsStream(t *testing.T) {
	header := makeHeader(t, headerOpts{partitionID: 0x42})
	rs := bytes.NewReader(header)

	// The parser must not depend on the current stream position.
	_, err := rs.Seek(0x50, io.SeekStart)
	require.NoError(t, err)

	hdr, err := ParseHeader(rs)
	require.NoError(t, err)
	require.Equal(t, Hex64(0x42), hdr.PartitionID)
}
