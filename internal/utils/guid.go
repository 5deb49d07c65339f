package utils

import (
	"crypto/rand"
	"fmt"
)

type Guid []byte

// NewGuid returns 16 random bytes. Uniqueness is best effort: on a failed
// read from the system source the remaining bytes are left zero rather than
// failing the caller, ids are diagnostic only.
func NewGuid() Guid {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return b
}

func (b Guid) String() string {
	bts := []byte(b)
	if len(bts) < 16 {
		return fmt.Sprintf("%x", bts)
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", bts[0:4], bts[4:6], bts[6:8], bts[8:10], bts[10:16])
}
