package frame

import "fmt"

// The device only carries 7-bit-safe values in the status block. Any byte
// in [fixupLow,fixupHigh) with the high bit set travels with that bit
// cleared and a marker of markerByte in its companion at index+fixupSpan.
const (
	fixupLow   = 64
	fixupHigh  = 128
	fixupSpan  = 64
	markerByte = 127
)

// RecoverInbound restores high bits flagged by companion markers. It must
// run once on a received frame, before fields in [64,128) are read. A
// marker against a byte that already has its high bit set is malformed and
// leaves f partially recovered.
func RecoverInbound(f *Frame) error {
	for i := fixupHigh; i < Size; i++ {
		if f[i] != markerByte {
			continue
		}
		if f[i-fixupSpan] >= 128 {
			return fmt.Errorf("%w: byte %d=%d", ErrMarkerOverflow, i-fixupSpan, f[i-fixupSpan])
		}
		f[i-fixupSpan] += 128
	}
	return nil
}

// BiasOutbound clears high bits in [64,128) and writes the companion
// markers. It must run once, after all payload writes and before Stamp.
func BiasOutbound(f *Frame) {
	for i := fixupLow; i < fixupHigh; i++ {
		if f[i] > markerByte {
			f[i] &= 0x7f
			f[i+fixupSpan] = markerByte
		} else {
			f[i+fixupSpan] = 0
		}
	}
}
