package ncchview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// exefsHeaderLen is the size of the file table at the start of an ExeFS.
const exefsHeaderLen = 0x200

// exefsMaxFiles is the number of slots in the file table.
const exefsMaxFiles = 10

// ExeFSHeader is the parsed file table of an ExeFS region.
type ExeFSHeader struct {
	Files []ExeFSFile
}

// ExeFSFile describes one file of an ExeFS.
type ExeFSFile struct {
	Name   string
	Offset int64 // bytes, relative to the end of the file table
	Size   int64
	Hash   Hex // SHA-256 over the file content, exposed, not verified
}

// ParseExeFSHeader reads the file table of an ExeFS region, typically from
// a stream returned by Header.OpenExeFSHeader.
//
// Empty slots are skipped. The per-file hashes sit at the top of the table
// in reverse order: the hash of file i is the i-th from the end.
func ParseExeFSHeader(input io.Reader) (*ExeFSHeader, error) {
	header := make([]byte, exefsHeaderLen)
	if _, err := io.ReadFull(input, header); err != nil {
		return nil, fmt.Errorf("exefs: failed to read header: %w", err)
	}

	exefs := &ExeFSHeader{}
	for i := 0; i < exefsMaxFiles; i++ {
		fileHeader := header[i*0x10 : (i+1)*0x10]
		fileName := string(bytes.TrimRight(fileHeader[:0x8], "\x00"))
		if fileName == "" {
			continue
		}

		hashOffset := exefsHeaderLen - (i+1)*0x20
		exefs.Files = append(exefs.Files, ExeFSFile{
			Name:   fileName,
			Offset: int64(binary.LittleEndian.Uint32(fileHeader[0x8:])),
			Size:   int64(binary.LittleEndian.Uint32(fileHeader[0xc:])),
			Hash:   Hex(header[hashOffset : hashOffset+0x20]),
		})
	}

	return exefs, nil
}

// File returns the entry with the given name, or nil if there is none.
func (e *ExeFSHeader) File(name string) *ExeFSFile {
	for i := range e.Files {
		if e.Files[i].Name == name {
			return &e.Files[i]
		}
	}
	return nil
}
