package frame

import (
	"encoding/binary"
	"fmt"
)

const (
	// ChecksumOffset is where the 4-byte checksum is stamped.
	ChecksumOffset = 124
	// ChecksumLast is the last byte index covered by the checksum.
	ChecksumLast = 123
)

// Checksum returns sum(b[i]*i) for i in [1,ChecksumLast], modulo 2^32.
// Byte 0 carries weight 0 and never contributes.
func Checksum(b []byte) (uint32, error) {
	if len(b) <= ChecksumLast {
		return 0, fmt.Errorf("%w: need %d bytes, got %d", ErrChecksumRegion, ChecksumLast+1, len(b))
	}
	var sum uint32
	for i := ChecksumLast; i > 0; i-- {
		sum += uint32(b[i]) * uint32(i)
	}
	return sum, nil
}

// Stamp computes the checksum of f and writes it little-endian into
// bytes ChecksumOffset..ChecksumOffset+3.
func Stamp(f *Frame) uint32 {
	sum, _ := Checksum(f[:])
	binary.LittleEndian.PutUint32(f[ChecksumOffset:ChecksumOffset+4], sum)
	return sum
}

// Stamped returns the checksum currently stored in f.
func Stamped(f Frame) uint32 {
	return binary.LittleEndian.Uint32(f[ChecksumOffset : ChecksumOffset+4])
}
