// Package daily derives the shared target for the daily challenge tier.
// Everyone playing on the same UTC date guesses the same number.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/guessmaster/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Target returns a deterministic number in r for a date using HMAC(salt, YYYY-MM-DD).
func Target(date time.Time, salt string, r game.Range) int {
	size := r.Size()
	if size <= 0 {
		return r.Low
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	n := binary.BigEndian.Uint64(sum[:8])
	return r.Low + int(n%uint64(size))
}
