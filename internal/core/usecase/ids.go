package usecase

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// RandomIDs issues uuid strings and positive int64 ids drawn from the same
// random source.
type RandomIDs struct{}

func (RandomIDs) NewString() string {
	return uuid.NewString()
}

// NewNumber folds the first half of a random uuid into a positive int64.
func (RandomIDs) NewNumber() int64 {
	for {
		id := uuid.New()
		if n := int64(binary.BigEndian.Uint64(id[:8]) >> 1); n > 0 {
			return n
		}
	}
}
