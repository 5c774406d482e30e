// Package quickxorhash provides the quickXorHash algorithm which is a
// quick, simple non-cryptographic hash algorithm that works by XORing
// the bytes in a circular-shifting fashion.
//
// It is used by Microsoft OneDrive for Business to hash file content.
//
// https://docs.microsoft.com/en-us/onedrive/developer/code-snippets/quickxorhash
package quickxorhash

import "hash"

const (
	// BlockSize is the preferred size for hashing
	BlockSize = 64
	// Size of the output checksum
	Size     = 20
	shift    = 11
	dataSize = shift * (8 * Size) / 8
)

type quickXorHash struct {
	data [dataSize]byte
	size uint64
}

// New returns a new hash.Hash computing the quickXorHash checksum.
func New() hash.Hash {
	return &quickXorHash{}
}

func xorBytes(dst, src []byte) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] ^= src[i]
	}
	return n
}

// Write (via the embedded io.Writer interface) adds more data to the
// running hash. It never returns an error.
//
// Each input byte is XORed into the accumulator at the position the
// total stream offset maps to, modulo the accumulator size.
func (q *quickXorHash) Write(p []byte) (n int, err error) {
	n = len(p)
	off := int(q.size % dataSize)
	q.size += uint64(n)
	if off != 0 {
		w := xorBytes(q.data[off:], p)
		p = p[w:]
	}
	for len(p) >= dataSize {
		xorBytes(q.data[:], p[:dataSize])
		p = p[dataSize:]
	}
	xorBytes(q.data[:], p)
	return n, nil
}

// checkSum folds the accumulator down to 160 bits, circular-shifting
// each cell into place, then XORs in the stream length little-endian.
func (q *quickXorHash) checkSum() (h [Size + 1]byte) {
	for i := 0; i < dataSize; i++ {
		shifted := (i * shift) % (8 * Size)
		shiftBytes := shifted / 8
		shiftBits := shifted % 8
		s := int(q.data[i]) << shiftBits
		h[shiftBytes] ^= byte(s)
		h[shiftBytes+1] ^= byte(s >> 8)
	}
	// bits past the end wrap around to the start
	h[0] ^= h[Size]
	h[Size] = 0

	// XOR the file length into the least significant bits
	d := q.size
	for i := 0; i < 8; i++ {
		h[Size-8+i] ^= byte(d >> (8 * i))
	}
	return h
}

// Sum appends the current hash to b and returns the resulting slice.
// It does not change the underlying hash state.
func (q *quickXorHash) Sum(b []byte) []byte {
	h := q.checkSum()
	return append(b, h[:Size]...)
}

// Reset resets the Hash to its initial state.
func (q *quickXorHash) Reset() {
	*q = quickXorHash{}
}

// Size returns the number of bytes Sum will return.
func (q *quickXorHash) Size() int {
	return Size
}

// BlockSize returns the hash's underlying block size.
func (q *quickXorHash) BlockSize() int {
	return BlockSize
}

// Sum returns the quickXorHash checksum of the data.
func Sum(data []byte) (h [Size]byte) {
	var d quickXorHash
	_, _ = d.Write(data)
	s := d.checkSum()
	copy(h[:], s[:Size])
	return h
}
