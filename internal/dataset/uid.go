package dataset

import (
	"math/big"

	"github.com/google/uuid"
)

// uidRoot is the UUID-derived UID arc (PS3.5 B.2).
const uidRoot = "2.25."

// NewUID returns a globally unique DICOM UID derived from a random UUID.
func NewUID() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	return uidRoot + n.String()
}
