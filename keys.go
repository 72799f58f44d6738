package ncchview

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
)

// Keypair holds the two AES keys an encrypted NCCH can mix.
//
// The primary key covers the extended header, the ExeFS header and the
// icon and banner files; the secondary key covers the other ExeFS files
// and the RomFS. For the initial crypt method without a seed, both are the
// same key. Section openers only ever read from it, so one Keypair can
// serve any number of streams.
type Keypair struct {
	Primary   [16]byte
	Secondary [16]byte
}

// KeySet carries the key generation material consumed by DeriveKeypair:
// one NCCH KeyX per crypt method plus the fixed key used by system titles.
type KeySet struct {
	NCCHInitial [16]byte // KeyX for CryptInitial, also the primary key slot
	NCCH700     [16]byte // KeyX for Crypt700
	NCCH930     [16]byte // KeyX for Crypt930
	NCCH960     [16]byte // KeyX for Crypt960
	FixedSystem [16]byte // normal key for fixed-key system titles
}

// DefaultKeySet returns the retail key material, the publicly documented
// constants that every third-party CTR tool ships.
func DefaultKeySet() *KeySet {
	return &KeySet{
		NCCHInitial: mustKey("B98E95CECA3E4D171F76A94DE934C053"),
		NCCH700:     mustKey("CEE7D8AB30C00DAE850EF5E382AC5AF3"),
		NCCH930:     mustKey("82E9C9BEBFB8BDB875ECC0A07D474374"),
		NCCH960:     mustKey("45AD04953992C7C893724A9A7BCE6182"),
		FixedSystem: mustKey("527CE630A9CA305F3696F3CDE954194B"),
	}
}

func mustKey(s string) (key [16]byte) {
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != len(key) {
		panic("ncchview: malformed key literal")
	}
	copy(key[:], decoded)
	return key
}

// ncchKeyX selects the KeyX slot for a crypt method.
func (ks *KeySet) ncchKeyX(m CryptMethod) ([16]byte, error) {
	switch m {
	case CryptInitial:
		return ks.NCCHInitial, nil
	case Crypt700:
		return ks.NCCH700, nil
	case Crypt930:
		return ks.NCCH930, nil
	case Crypt960:
		return ks.NCCH960, nil
	}
	return [16]byte{}, fmt.Errorf("ncch: crypt method %s: %w", m, ErrUnsupportedCryptMethod)
}

// u128 is a 128-bit value split in big-endian halves, just enough for the
// key scrambler.
type u128 struct {
	hi, lo uint64
}

func loadU128(b [16]byte) u128 {
	return u128{
		hi: binary.BigEndian.Uint64(b[:8]),
		lo: binary.BigEndian.Uint64(b[8:]),
	}
}

func (v u128) bytes() (b [16]byte) {
	binary.BigEndian.PutUint64(b[:8], v.hi)
	binary.BigEndian.PutUint64(b[8:], v.lo)
	return b
}

func (v u128) xor(o u128) u128 {
	return u128{v.hi ^ o.hi, v.lo ^ o.lo}
}

func (v u128) add(o u128) u128 {
	lo, carry := bits.Add64(v.lo, o.lo, 0)
	hi, _ := bits.Add64(v.hi, o.hi, carry)
	return u128{hi, lo}
}

func (v u128) rol(n uint) u128 {
	if n >= 64 {
		v.hi, v.lo = v.lo, v.hi
		n -= 64
	}
	if n == 0 {
		return v
	}
	return u128{
		hi: v.hi<<n | v.lo>>(64-n),
		lo: v.lo<<n | v.hi>>(64-n),
	}
}

// keygenConst is the public generator constant of the CTR key scrambler.
var keygenConst = u128{hi: 0x1FF9E9AAC5FE0408, lo: 0x024591DC5D52768A}

// Keygen runs the CTR key scrambler: it combines a KeyX and a KeyY into
// the AES normal key, like the console's AES engine does in hardware.
func Keygen(keyX, keyY [16]byte) [16]byte {
	x := loadU128(keyX)
	y := loadU128(keyY)
	return x.rol(2).xor(y).add(keygenConst).rol(87).bytes()
}

// SeedSource supplies seeds for titles whose secondary KeyY is
// seed-remapped. Implementations return false when no seed is known for
// the title.
type SeedSource interface {
	Seed(titleID uint64) ([16]byte, bool)
}

// SeededKeyY remaps the header KeyY with the title's seed, after checking
// the seed against the verification value stored in the header.
//
// The check value is the first 4 bytes of SHA-256 over the seed followed
// by the title ID in its stored little-endian byte order. The remapped
// KeyY is the first half of SHA-256 over the original KeyY followed by
// the seed.
func SeededKeyY(hdr *Header, seed [16]byte) ([16]byte, error) {
	var keyY [16]byte

	check := make([]byte, 0x18)
	copy(check, seed[:])
	binary.LittleEndian.PutUint64(check[0x10:], uint64(hdr.TitleID))
	digest := sha256.Sum256(check)
	if !bytes.Equal(digest[:4], hdr.SeedCheck[:]) {
		return keyY, fmt.Errorf("ncch: seed check failed for title %s: %w", hdr.TitleID, ErrSeedHashMismatch)
	}

	remap := make([]byte, 0x20)
	copy(remap, hdr.KeyY[:])
	copy(remap[0x10:], seed[:])
	digest = sha256.Sum256(remap)
	copy(keyY[:], digest[:16])
	return keyY, nil
}

// DeriveKeypair computes the primary and secondary keys of an NCCH.
//
// The fixed-key and no-crypto flags bypass the scrambler entirely. The
// seed source is only consulted when the header demands a seed, so nil is
// fine for unseeded NCCHs; a missing source or seed yields
// ErrSeedUnavailable, a seed failing the header check ErrSeedHashMismatch,
// and an unknown crypt method ErrUnsupportedCryptMethod.
func DeriveKeypair(hdr *Header, ks *KeySet, seeds SeedSource) (*Keypair, error) {
	if hdr.Flags&FlagNoCrypto != 0 {
		// Nothing will be decrypted, the keys are never used.
		return &Keypair{}, nil
	}

	if hdr.Flags&FlagFixedKey != 0 {
		var kp Keypair
		// Only system titles, those with the 0x10 category bit, use the
		// non-zero fixed key. Everything else gets all-zero keys.
		if uint64(hdr.TitleID)&(0x10<<32) != 0 {
			kp.Primary = ks.FixedSystem
			kp.Secondary = ks.FixedSystem
		}
		return &kp, nil
	}

	secondaryY := hdr.KeyY
	if hdr.Flags&FlagUsesSeed != 0 {
		if seeds == nil {
			return nil, fmt.Errorf("ncch: no seed source for title %s: %w", hdr.TitleID, ErrSeedUnavailable)
		}
		seed, ok := seeds.Seed(uint64(hdr.TitleID))
		if !ok {
			return nil, fmt.Errorf("ncch: no seed for title %s: %w", hdr.TitleID, ErrSeedUnavailable)
		}

		var err error
		secondaryY, err = SeededKeyY(hdr, seed)
		if err != nil {
			return nil, err
		}
	}

	secondaryX, err := ks.ncchKeyX(hdr.CryptMethod)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		Primary:   Keygen(ks.NCCHInitial, hdr.KeyY),
		Secondary: Keygen(secondaryX, secondaryY),
	}, nil
}
