package ncchview

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"strings"
)

// smdhLen is the size of an SMDH, the icon file of an ExeFS.
const smdhLen = 0x36c0

// SMDH is the parsed icon file of a title: descriptions, region lockout
// and the icon bitmaps.
type SMDH struct {
	Title   SMDHTitle
	Regions []string

	smallIcon []byte
	largeIcon []byte
}

// SMDHTitle is the English variant of the title descriptions.
type SMDHTitle struct {
	ShortDescription string
	LongDescription  string
	Publisher        string
}

// ParseSMDH reads an SMDH, typically from a stream returned by
// Header.OpenExeFSFile for the "icon" file.
func ParseSMDH(input io.Reader) (*SMDH, error) {
	data := make([]byte, smdhLen)
	if _, err := io.ReadFull(input, data); err != nil {
		return nil, fmt.Errorf("smdh: failed to read data: %w", err)
	}

	if string(data[:0x4]) != "SMDH" {
		return nil, fmt.Errorf("smdh: magic not found: %w", ErrCorrupt)
	}

	title := data[0x208:0x408]
	shortDescription := strings.TrimRight(decodeUTF16(title[:0x80], binary.LittleEndian), "\x00")
	longDescription := strings.TrimRight(decodeUTF16(title[0x80:0x180], binary.LittleEndian), "\x00")
	publisher := strings.TrimRight(decodeUTF16(title[0x180:0x200], binary.LittleEndian), "\x00")

	regionFlags := binary.LittleEndian.Uint32(data[0x2018:])
	regions := make([]string, 0, 1)
	if regionFlags == 0x7fffffff {
		regions = append(regions, "World")
	} else {
		if regionFlags > 0x7f {
			return nil, fmt.Errorf("smdh: unexpected region flags: %s", Hex32(regionFlags))
		} else if (regionFlags&0x04)<<1 != regionFlags&0x08 {
			return nil, fmt.Errorf("smdh: regions flags must be the same for Europe and Australia: %s", Hex32(regionFlags))
		}
		if regionFlags&0x01 != 0 {
			regions = append(regions, "Japan")
		}
		if regionFlags&0x02 != 0 {
			regions = append(regions, "North America")
		}
		if regionFlags&0x04 != 0 {
			regions = append(regions, "Europe")
		}
		if regionFlags&0x10 != 0 {
			regions = append(regions, "China")
		}
		if regionFlags&0x20 != 0 {
			regions = append(regions, "Korea")
		}
		if regionFlags&0x40 != 0 {
			regions = append(regions, "Taiwan")
		}
	}

	return &SMDH{
		Title: SMDHTitle{
			ShortDescription: shortDescription,
			LongDescription:  longDescription,
			Publisher:        publisher,
		},
		Regions: regions,

		smallIcon: data[0x2040:0x24c0],
		largeIcon: data[0x24c0:smdhLen],
	}, nil
}

// IconImage decodes the large icon, 48x48 pixels.
func (s *SMDH) IconImage() (image.Image, error) {
	return decodeIconImage(s.largeIcon, 48)
}

// SmallIconImage decodes the small icon, 24x24 pixels.
func (s *SMDH) SmallIconImage() (image.Image, error) {
	return decodeIconImage(s.smallIcon, 24)
}
