package game

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Tier names.
const (
	TierEasy   = "easy"
	TierMedium = "medium"
	TierHard   = "hard"
	TierDaily  = "daily"
	TierCustom = "custom"
)

// Limits for custom ranges.
const (
	CustomMin         = 1
	CustomMax         = 1_000_000
	minCustomAttempts = 3
)

// Tier bundles a guess range with an attempt limit.
type Tier struct {
	Name        string
	Range       Range
	MaxAttempts int
	// Daily tiers take their target from the date instead of the RNG.
	Daily bool
}

// Tiers is the configured difficulty table keyed by lowercase name.
type Tiers map[string]Tier

// DefaultTiers returns the stock table. Limits equal the number of guesses a
// perfect bisection needs, so every tier is winnable.
func DefaultTiers() Tiers {
	easy := Range{Low: 1, High: 50}
	medium := Range{Low: 1, High: 100}
	hard := Range{Low: 1, High: 500}
	return Tiers{
		TierEasy:   {Name: TierEasy, Range: easy, MaxAttempts: AttemptsFor(easy)},
		TierMedium: {Name: TierMedium, Range: medium, MaxAttempts: AttemptsFor(medium)},
		TierHard:   {Name: TierHard, Range: hard, MaxAttempts: AttemptsFor(hard)},
		TierDaily:  {Name: TierDaily, Range: medium, MaxAttempts: AttemptsFor(medium), Daily: true},
	}
}

// WithMaxAttempts returns a copy where every tier allows n attempts.
// n <= 0 leaves the table untouched.
func (t Tiers) WithMaxAttempts(n int) Tiers {
	if n <= 0 {
		return t
	}
	out := make(Tiers, len(t))
	for k, v := range t {
		v.MaxAttempts = n
		out[k] = v
	}
	return out
}

// Lookup resolves a tier by name. "custom" must go through CustomTier.
func (t Tiers) Lookup(name string) (Tier, error) {
	if tier, ok := t[strings.ToLower(strings.TrimSpace(name))]; ok {
		return tier, nil
	}
	return Tier{}, fmt.Errorf("%w: %s", ErrUnknownDifficulty, name)
}

// Names lists tiers in ascending range size, the order menus show them in.
func (t Tiers) Names() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := t[out[i]], t[out[j]]
		if a.Range.Size() != b.Range.Size() {
			return a.Range.Size() < b.Range.Size()
		}
		return a.Name < b.Name
	})
	return out
}

// CustomTier validates a player-supplied range and derives its limit.
// maxAttempts > 0 overrides the derived limit.
func CustomTier(r Range, maxAttempts int) (Tier, error) {
	if r.Low < CustomMin {
		return Tier{}, fmt.Errorf("%w: minimum value must be at least %d", ErrInvalidRange, CustomMin)
	}
	if err := r.Validate(); err != nil {
		return Tier{}, err
	}
	if r.High > CustomMax {
		return Tier{}, fmt.Errorf("%w: maximum value cannot exceed %d", ErrInvalidRange, CustomMax)
	}
	if maxAttempts <= 0 {
		maxAttempts = AttemptsFor(r)
	}
	return Tier{Name: TierCustom, Range: r, MaxAttempts: maxAttempts}, nil
}

// AttemptsFor scales the attempt limit with the range: wider ranges get more.
func AttemptsFor(r Range) int {
	n := bits.Len(uint(r.Size()))
	if n < minCustomAttempts {
		return minCustomAttempts
	}
	return n
}
