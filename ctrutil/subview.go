package ctrutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrOutOfRange is returned by Subview.Seek for positions outside the view.
var ErrOutOfRange = errors.New("position out of range")

// Subview exposes a byte range of a seekable stream as a stream of its own.
//
// The view addresses [0, size) and maps it to [offset, offset+size) of the
// underlying stream. The underlying position is re-established before every
// read, so several views may share one stream as long as they are not used
// concurrently.
type Subview struct {
	src  io.ReadSeeker
	off  int64
	size int64
	pos  int64
}

var _ io.ReadSeeker = &Subview{}

// NewSubview returns a view over the size bytes of src starting at off.
// The view starts positioned at 0, wherever src currently points.
func NewSubview(src io.ReadSeeker, off, size int64) *Subview {
	return &Subview{
		src:  src,
		off:  off,
		size: size,
		pos:  0,
	}
}

// Size of the view in bytes.
func (v *Subview) Size() int64 {
	return v.size
}

func (v *Subview) Read(p []byte) (int, error) {
	if v.pos >= v.size {
		return 0, io.EOF
	}
	if max := v.size - v.pos; int64(len(p)) > max {
		p = p[:max]
	}

	if _, err := v.src.Seek(v.off+v.pos, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := v.src.Read(p)
	v.pos += int64(n)
	if err == io.EOF && v.pos < v.size {
		// The underlying stream ended before the declared extent.
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// Seek within the view. Positions outside [0, size] are rejected with
// ErrOutOfRange and leave the current position untouched.
func (v *Subview) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = v.pos + offset
	case io.SeekEnd:
		pos = v.size + offset
	default:
		return 0, fmt.Errorf("subview: invalid whence: %d", whence)
	}

	if pos < 0 || pos > v.size {
		return 0, fmt.Errorf("subview: seek to %d outside of [0, %d]: %w", pos, v.size, ErrOutOfRange)
	}

	v.pos = pos
	return pos, nil
}
