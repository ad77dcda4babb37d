package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	objectIDPrefix    = "form_"
	objectIDSuffixLen = 7
	base36Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// newObjectID returns form_<unix ms>_<7 base36 chars>.
func newObjectID(now time.Time) string {
	suffix := make([]byte, objectIDSuffixLen)
	limit := big.NewInt(int64(len(base36Alphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}
	return objectIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}

func newID() string {
	return uuid.NewString()
}
