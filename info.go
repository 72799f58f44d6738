package ncchview

import (
	"fmt"
	"io"
)

// NCCHInfo summarizes an NCCH container for display.
type NCCHInfo struct {
	PartitionID Hex64
	TitleID     Hex64
	MakerCode   string
	ProductCode string
	Version     uint16
	Platform    string
	Type        []string
	CryptMethod CryptMethod
	Flags       Hex8
	Encrypted   bool
	FixedKey    bool
	UsesSeed    bool
	Regions     RegionInfo
	ExeFS       *ExeFSInfo
}

// RegionInfo lists the extent of each section, in bytes.
type RegionInfo struct {
	ContentSize  int64
	ExHeaderSize uint32
	Plain        Region
	Logo         Region
	ExeFS        Region
	RomFS        Region
}

// ExeFSInfo lists the ExeFS files and the parsed icon, when there is one.
type ExeFSInfo struct {
	Files []ExeFSFile
	Icon  *SMDH
}

// Inspect parses an NCCH and summarizes it, decrypting what it needs along
// the way. The key set and seed source follow DeriveKeypair semantics.
func Inspect(rs io.ReadSeeker, ks *KeySet, seeds SeedSource) (*NCCHInfo, error) {
	hdr, err := ParseHeader(rs)
	if err != nil {
		return nil, err
	}

	info := &NCCHInfo{
		PartitionID: hdr.PartitionID,
		TitleID:     hdr.TitleID,
		MakerCode:   hdr.MakerCode,
		ProductCode: hdr.ProductCode,
		Version:     hdr.Version,
		Platform:    platformName(hdr.Platform),
		Type:        typeNames(hdr.Type),
		CryptMethod: hdr.CryptMethod,
		Flags:       Hex8(hdr.Flags),
		Encrypted:   hdr.Flags&FlagNoCrypto == 0,
		FixedKey:    hdr.Flags&FlagFixedKey != 0,
		UsesSeed:    hdr.Flags&FlagUsesSeed != 0,
		Regions: RegionInfo{
			ContentSize:  hdr.ContentSize,
			ExHeaderSize: hdr.ExHeaderSize,
			Plain:        hdr.Plain,
			Logo:         hdr.Logo,
			ExeFS:        hdr.ExeFS,
			RomFS:        hdr.RomFS,
		},
	}

	if hdr.ExeFS.Size == 0 {
		return info, nil
	}

	kp, err := DeriveKeypair(hdr, ks, seeds)
	if err != nil {
		return nil, err
	}

	stream, err := hdr.OpenExeFSHeader(rs, kp)
	if err != nil {
		return nil, err
	}
	exefs, err := ParseExeFSHeader(stream)
	if err != nil {
		return nil, err
	}
	info.ExeFS = &ExeFSInfo{
		Files: exefs.Files,
	}

	if icon := exefs.File("icon"); icon != nil {
		if icon.Size != smdhLen {
			return nil, fmt.Errorf("ncch: when present, icon must have size %d, got %d: %w", smdhLen, icon.Size, ErrCorrupt)
		}

		iconStream, err := hdr.OpenExeFSFile(rs, kp, icon)
		if err != nil {
			return nil, err
		}
		info.ExeFS.Icon, err = ParseSMDH(iconStream)
		if err != nil {
			return nil, err
		}
	}

	return info, nil
}

func platformName(platform uint8) string {
	switch platform {
	case PlatformO3DS:
		return "O3DS"
	case PlatformN3DS:
		return "N3DS"
	}
	return Hex8(platform).String()
}

func typeNames(contentType uint8) []string {
	names := make([]string, 0, 2)
	if contentType&TypeData != 0 {
		names = append(names, "Data")
	}
	if contentType&TypeExe != 0 {
		names = append(names, "Executable")
	}
	if contentType&TypeSysUpdate != 0 {
		names = append(names, "SystemUpdate")
	}
	if contentType&TypeManual != 0 {
		names = append(names, "Manual")
	}
	if contentType&TypeTrial != 0 {
		names = append(names, "Trial")
	}
	return names
}
