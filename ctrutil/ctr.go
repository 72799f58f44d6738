package ctrutil

import (
	"crypto/aes"
	"crypto/cipher"
	"io"
)

// Ctr is a read-only AES-CTR view over a Subview.
//
// Reads transform the underlying bytes on the fly; CTR being symmetric,
// the same view decrypts ciphertext and encrypts plaintext. Seeking
// recomputes the counter block from the absolute position, so any offset
// can be read without consuming the bytes before it.
type Ctr struct {
	sv     *Subview
	block  cipher.Block
	iv     [16]byte
	pos    int64
	stream cipher.Stream
}

var _ io.ReadSeeker = &Ctr{}

// NewCtr returns an AES-CTR view over sv with the given 128-bit key and
// initial counter. The counter corresponds to position 0 of the view.
func NewCtr(sv *Subview, key []byte, iv [16]byte) (*Ctr, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	c := &Ctr{
		sv:    sv,
		block: block,
		iv:    iv,
	}
	if _, err := c.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return c, nil
}

// Size of the view in bytes.
func (c *Ctr) Size() int64 {
	return c.sv.Size()
}

func (c *Ctr) Read(p []byte) (int, error) {
	n, err := c.sv.Read(p)
	if n > 0 {
		c.stream.XORKeyStream(p[:n], p[:n])
		c.pos += int64(n)
	}
	return n, err
}

// Seek within the view, following Subview semantics.
func (c *Ctr) Seek(offset int64, whence int) (int64, error) {
	pos, err := c.sv.Seek(offset, whence)
	if err != nil {
		return 0, err
	}

	if c.stream == nil || pos != c.pos {
		c.rekey(pos)
	}
	return pos, nil
}

// rekey positions the keystream at pos: the counter block is iv plus the
// number of whole cipher blocks before pos, and the remainder within the
// current block is discarded.
func (c *Ctr) rekey(pos int64) {
	counter := c.iv
	counterAdd(&counter, uint64(pos)/aes.BlockSize)
	c.stream = cipher.NewCTR(c.block, counter[:])

	if skip := pos % aes.BlockSize; skip > 0 {
		var scratch [aes.BlockSize]byte
		c.stream.XORKeyStream(scratch[:skip], scratch[:skip])
	}
	c.pos = pos
}

// counterAdd adds n to a big-endian counter block.
func counterAdd(counter *[16]byte, n uint64) {
	for i := len(counter) - 1; i >= 0 && n > 0; i-- {
		n += uint64(counter[i])
		counter[i] = byte(n)
		n >>= 8
	}
}
