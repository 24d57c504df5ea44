package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/foxseedlab/soapscribe/internal/apperror"
)

var ErrMalformedFraming = errors.New("malformed opus packet framing")

// splitPackets reads a stream of uint16 big-endian length prefixed packets.
func splitPackets(framed []byte) ([][]byte, error) {
	var packets [][]byte
	for off := 0; off < len(framed); {
		if off+2 > len(framed) {
			return nil, fmt.Errorf("%w: truncated length at offset %d", ErrMalformedFraming, off)
		}
		n := int(binary.BigEndian.Uint16(framed[off:]))
		off += 2
		if n == 0 {
			continue
		}
		if off+n > len(framed) {
			return nil, fmt.Errorf("%w: packet of %d bytes at offset %d exceeds payload", ErrMalformedFraming, n, off)
		}
		packets = append(packets, framed[off:off+n])
		off += n
	}
	return packets, nil
}

func framingError(err error) error {
	return apperror.ValidationCause(apperror.CodeInvalidSamples, "Opus payload framing is malformed", err)
}
