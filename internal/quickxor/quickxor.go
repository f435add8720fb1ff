// Package quickxor implements QuickXorHash, the content hash OneDrive for
// Business and SharePoint report for every file.
//
// Input bytes are XORed into a 160-bit ring, each one 11 bits further along
// than the last. The total input length is XORed into the final 8 bytes of
// the digest. Graph reports the digest base64-encoded.
//
// https://learn.microsoft.com/en-us/onedrive/developer/code-snippets/quickxorhash
package quickxor

import (
	"encoding/base64"
	"encoding/binary"
	"hash"
	"io"
)

const (
	// Size is the length, in bytes, of a QuickXorHash digest.
	Size = 20

	// BlockSize is the preferred input block size for the hash, in bytes.
	BlockSize = 64

	shift       = 11
	widthInBits = Size * 8
)

type digest struct {
	ring   [Size]byte
	offset int // bit position of the next input byte, in [0, widthInBits)
	length uint64
}

// New returns a new hash.Hash computing QuickXorHash.
func New() hash.Hash {
	return &digest{}
}

// Write absorbs more data into the running hash. It never fails.
func (d *digest) Write(p []byte) (int, error) {
	for _, b := range p {
		idx := d.offset / 8
		bit := uint(d.offset % 8)

		v := uint16(b) << bit
		d.ring[idx] ^= byte(v)
		d.ring[(idx+1)%Size] ^= byte(v >> 8)

		d.offset = (d.offset + shift) % widthInBits
	}

	d.length += uint64(len(p))

	return len(p), nil
}

// Sum appends the digest to b without changing the running state.
func (d *digest) Sum(b []byte) []byte {
	out := d.ring

	var lenBytes [8]byte
	binary.LittleEndian.PutUint64(lenBytes[:], d.length)

	for i, lb := range lenBytes {
		out[Size-len(lenBytes)+i] ^= lb
	}

	return append(b, out[:]...)
}

func (d *digest) Reset() {
	*d = digest{}
}

func (d *digest) Size() int      { return Size }
func (d *digest) BlockSize() int { return BlockSize }

// Encode returns the digest in the base64 form Graph uses.
func Encode(sum []byte) string {
	return base64.StdEncoding.EncodeToString(sum)
}

// Reader hashes everything read from r and returns the encoded digest.
func Reader(r io.Reader) (string, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return Encode(h.Sum(nil)), nil
}
