package ncchview

import (
	"fmt"
	"io"

	"github.com/connesc/ncchview/ctrutil"
)

// SectionStream is a read-only, seekable view over one NCCH section.
//
// It is either a plain window into the backing stream or a decrypting
// AES-CTR view over such a window; both behave identically, so callers
// need not care whether the container was encrypted. A stream borrows the
// backing stream, which must outlive it. Sibling streams share no state,
// but the backing stream has a single cursor: use them one at a time or
// give each its own backing stream.
type SectionStream interface {
	io.Reader
	io.Seeker

	// Size of the section in bytes.
	Size() int64
}

var (
	_ SectionStream = &ctrutil.Subview{}
	_ SectionStream = &ctrutil.Ctr{}
)

// exheaderLen is the only valid size of an extended header region.
const exheaderLen = 0x400

// OpenExHeader opens the decrypted extended header, the ExHeaderSize bytes
// right after the NCCH header.
func (h *Header) OpenExHeader(rs io.ReadSeeker, kp *Keypair) (SectionStream, error) {
	if h.ExHeaderSize == 0 {
		return nil, fmt.Errorf("ncch: no extended header: %w", ErrNotFound)
	}
	if h.ExHeaderSize != exheaderLen {
		return nil, fmt.Errorf("ncch: extended header size must be %d, got %d: %w", exheaderLen, h.ExHeaderSize, ErrCorrupt)
	}

	region := Region{Offset: headerLen, Size: int64(h.ExHeaderSize)}
	if h.Flags&FlagNoCrypto != 0 {
		return ctrutil.NewSubview(rs, region.Offset, region.Size), nil
	}
	return h.openEncrypted(rs, kp.Primary, SectionExHeader, region)
}

// OpenExeFSHeader opens the whole ExeFS region decrypted with the primary
// key.
//
// The file table at the start of the stream and the icon and banner
// contents are valid through it; the other files run on the secondary key
// and must be opened with OpenExeFSFile instead.
func (h *Header) OpenExeFSHeader(rs io.ReadSeeker, kp *Keypair) (SectionStream, error) {
	if h.ExeFS.Size == 0 {
		return nil, fmt.Errorf("ncch: no ExeFS: %w", ErrNotFound)
	}

	if h.Flags&FlagNoCrypto != 0 {
		return ctrutil.NewSubview(rs, h.ExeFS.Offset, h.ExeFS.Size), nil
	}
	return h.openEncrypted(rs, kp.Primary, SectionExeFSHeader, h.ExeFS)
}

// OpenExeFSFile opens one file of the ExeFS, as listed by
// ParseExeFSHeader.
//
// The stream decrypts the whole region and narrows to the file's range, so
// reads line up with the region keystream at any offset. The icon and
// banner files use the primary key, everything else the secondary key.
func (h *Header) OpenExeFSFile(rs io.ReadSeeker, kp *Keypair, file *ExeFSFile) (SectionStream, error) {
	if h.ExeFS.Size == 0 {
		return nil, fmt.Errorf("ncch: no ExeFS: %w", ErrNotFound)
	}

	offset := exefsHeaderLen + file.Offset
	if offset+file.Size > h.ExeFS.Size {
		return nil, fmt.Errorf("ncch: ExeFS file %q exceeds its region: %w", file.Name, ErrCorrupt)
	}

	if h.Flags&FlagNoCrypto != 0 {
		return ctrutil.NewSubview(rs, h.ExeFS.Offset+offset, file.Size), nil
	}

	key := kp.Secondary
	if file.Name == "icon" || file.Name == "banner" {
		key = kp.Primary
	}

	region, err := h.openEncrypted(rs, key, SectionExeFSFile, h.ExeFS)
	if err != nil {
		return nil, err
	}
	return ctrutil.NewSubview(region, offset, file.Size), nil
}

// OpenRomFS opens the decrypted RomFS region.
func (h *Header) OpenRomFS(rs io.ReadSeeker, kp *Keypair) (SectionStream, error) {
	if h.Flags&FlagNoRomFS != 0 || h.RomFS.Size == 0 {
		return nil, fmt.Errorf("ncch: no RomFS: %w", ErrNotFound)
	}

	if h.Flags&FlagNoCrypto != 0 {
		return ctrutil.NewSubview(rs, h.RomFS.Offset, h.RomFS.Size), nil
	}
	return h.openEncrypted(rs, kp.Secondary, SectionRomFS, h.RomFS)
}

// OpenPlain opens the plain region, which is never encrypted.
func (h *Header) OpenPlain(rs io.ReadSeeker) (SectionStream, error) {
	if h.Plain.Size == 0 {
		return nil, fmt.Errorf("ncch: no plain region: %w", ErrNotFound)
	}
	return ctrutil.NewSubview(rs, h.Plain.Offset, h.Plain.Size), nil
}

// OpenLogo opens the logo region, which is never encrypted.
func (h *Header) OpenLogo(rs io.ReadSeeker) (SectionStream, error) {
	if h.Logo.Size == 0 {
		return nil, fmt.Errorf("ncch: no logo region: %w", ErrNotFound)
	}
	return ctrutil.NewSubview(rs, h.Logo.Offset, h.Logo.Size), nil
}

func (h *Header) openEncrypted(rs io.ReadSeeker, key [16]byte, s Section, r Region) (*ctrutil.Ctr, error) {
	iv, err := h.SectionIV(s)
	if err != nil {
		return nil, err
	}

	stream, err := ctrutil.NewCtr(ctrutil.NewSubview(rs, r.Offset, r.Size), key[:], iv)
	if err != nil {
		return nil, fmt.Errorf("ncch: failed to initialize section cipher: %w", err)
	}
	return stream, nil
}
