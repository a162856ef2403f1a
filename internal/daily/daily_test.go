package daily

import (
	"testing"
	"time"

	"github.com/robalobadob/guessmaster/internal/game"
)

func TestTargetDeterministic(t *testing.T) {
	r := game.Range{Low: 1, High: 100}
	morning := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	a := Target(morning, "salt", r)
	if b := Target(evening, "salt", r); a != b {
		t.Fatalf("same day gave %d and %d", a, b)
	}
	if !r.Contains(a) {
		t.Fatalf("target %d outside %s", a, r)
	}
}

func TestTargetCoversRange(t *testing.T) {
	r := game.Range{Low: 10, High: 12}
	seen := map[int]bool{}
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		n := Target(day.AddDate(0, 0, i), "local_dev_salt", r)
		if !r.Contains(n) {
			t.Fatalf("target %d outside %s", n, r)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected every value over 60 days, saw %v", seen)
	}
}

func TestDateKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2026, 5, 2, 8, 0, 0, 0, loc)
	if got := DateKey(ts); got != "2026-05-01" {
		t.Fatalf("DateKey = %s", got)
	}
}
