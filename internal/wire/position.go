// Package wire implements the external wire formats of SPEC_FULL.md §6.1 and
// §6.2. Formatting is done in place into a caller-supplied, reused []byte
// buffer via strconv.AppendInt rather than fmt.Sprintf, the same
// no-heap-allocation-per-record idiom the teacher uses when marshaling
// fixed-layout structs into a byte slice.
package wire

import (
	"strconv"

	"github.com/cas-centre/stagecore/internal/ring"
)

var nanBytes = []byte("NaN")

// AppendPositionLine appends one position record (SPEC_FULL.md §6.1) to buf
// and returns the extended slice. It does not append a trailing newline;
// the Publisher joins records with "\n" itself.
func AppendPositionLine(buf []byte, s ring.PositionSample) []byte {
	buf = strconv.AppendUint(buf, s.TimestampNs, 10)
	buf = appendAxisField(buf, s.X, s.ValidMask&ring.ValidX != 0)
	buf = appendAxisField(buf, s.Y, s.ValidMask&ring.ValidY != 0)
	buf = appendAxisField(buf, s.Z, s.ValidMask&ring.ValidZ != 0)
	buf = appendAxisField(buf, s.R, s.ValidMask&ring.ValidR != 0)
	return buf
}

func appendAxisField(buf []byte, v int32, valid bool) []byte {
	buf = append(buf, '/')
	if !valid {
		return append(buf, nanBytes...)
	}
	return strconv.AppendInt(buf, int64(v), 10)
}
