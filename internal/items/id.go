package items

import (
	"encoding/binary"
	"strconv"

	"github.com/google/uuid"
)

// NewID returns a short random identifier for rows imported without one.
// It carries 60 random bits from a v4 UUID, encoded in base36.
func NewID() string {
	u := uuid.New()
	// Bytes 0-7 of a v4 UUID hold 60 random bits; the version nibble is masked off.
	hi := binary.BigEndian.Uint64(u[:8])
	hi = (hi>>16)<<12 | hi&0x0fff
	return strconv.FormatUint(hi, 36)
}
