package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Binary layout, little endian:
//
//	magic [4]byte "FQVX" | version uint32 | dim uint32 | n uint32 | n*dim float32
const (
	codecMagic   = "FQVX"
	codecVersion = 1
	codecHeader  = 16
)

// MarshalBinary encodes the index. Stored rows are written as is.
func (f *FlatIndex) MarshalBinary() ([]byte, error) {
	out := make([]byte, codecHeader+len(f.data)*4)
	copy(out[0:4], codecMagic)
	binary.LittleEndian.PutUint32(out[4:8], codecVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(f.dim))
	binary.LittleEndian.PutUint32(out[12:16], uint32(f.n))
	putFloat32s(out[codecHeader:], f.data)
	return out, nil
}

// UnmarshalBinary replaces f with the decoded index. Rows are not
// renormalized, so a round trip reproduces every score bit for bit.
func (f *FlatIndex) UnmarshalBinary(b []byte) error {
	if len(b) < codecHeader || string(b[0:4]) != codecMagic {
		return ErrCorruptIndex
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != codecVersion {
		return fmt.Errorf("index version %d: %w", v, ErrCorruptIndex)
	}
	dim := int(binary.LittleEndian.Uint32(b[8:12]))
	n := int(binary.LittleEndian.Uint32(b[12:16]))
	payload := b[codecHeader:]
	if (n > 0 && dim == 0) || len(payload) != n*dim*4 {
		return fmt.Errorf("header declares %d x %d floats, payload has %d bytes: %w", n, dim, len(payload), ErrDimensionMismatch)
	}
	if n == 0 {
		dim = 0
	}
	*f = FlatIndex{dim: dim, n: n, data: getFloat32s(payload)}
	return nil
}

func putFloat32s(dst []byte, s []float32) {
	for i, v := range s {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func getFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
