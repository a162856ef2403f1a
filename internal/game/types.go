// internal/game/types.go
//
// Core type definitions for the guessing engine.
// Defines:
//   - Status: lifecycle of a single round (playing/won/lost).
//   - Result: what a caller sees after each evaluated guess.
//   - Range: inclusive bounds a target and every guess must fall into.
//   - Game: a registry entry wrapping either a single-player Session or a Match.

package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the coarse state of a Session.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Outcome is the result kind reported for a guess.
type Outcome string

const (
	OutcomeWin      Outcome = "win"
	OutcomeLose     Outcome = "lose"
	OutcomeContinue Outcome = "continue"
)

// Hint tells the player which way to move the next guess.
type Hint string

const (
	HintHigher Hint = "higher"
	HintLower  Hint = "lower"
)

// Mode separates single-player games from two-player matches.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ParseMode accepts "single" or "multi".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeMulti:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid game mode %q", s)
}

// Range is an inclusive [Low, High] interval.
type Range struct {
	Low  int
	High int
}

// Contains reports whether n lies inside the range.
func (r Range) Contains(n int) bool { return n >= r.Low && n <= r.High }

// Size is the number of integers in the range.
func (r Range) Size() int { return r.High - r.Low + 1 }

// Validate enforces Low < High.
func (r Range) Validate() error {
	if r.High <= r.Low {
		return fmt.Errorf("%w: maximum must be greater than minimum", ErrInvalidRange)
	}
	return nil
}

func (r Range) String() string { return fmt.Sprintf("%d-%d", r.Low, r.High) }

// MarshalJSON encodes a range as [low, high], the shape browsers already use.
func (r Range) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%d,%d]", r.Low, r.High)), nil
}

// UnmarshalJSON accepts [low, high].
func (r *Range) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("%w: range must be [min, max]", ErrInvalidRange)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: range must be [min, max]", ErrInvalidRange)
	}
	r.Low, r.High = pair[0], pair[1]
	return nil
}

// Result is returned for every evaluated guess.
// Exactly one of the optional fields is meaningful per Outcome:
//   - win:      Attempts
//   - lose:     Target (and Attempts == max)
//   - continue: Hint + Remaining
type Result struct {
	Outcome   Outcome `json:"result"`
	Attempts  int     `json:"attempts"`
	Remaining int     `json:"remaining,omitempty"`
	Hint      Hint    `json:"hint,omitempty"`
	Target    int     `json:"target,omitempty"`
}

// Finished reports whether the result ended the round.
func (r Result) Finished() bool { return r.Outcome != OutcomeContinue }

// Game is one addressable play context held by the session registry.
type Game struct {
	ID         string    // Random UUID, the handle callers pass around.
	Mode       Mode      // single | multi
	Difficulty string    // Tier name for single-player games.
	Session    *Session  // Set for single-player games.
	Match      *Match    // Set for two-player games.
	StartedAt  time.Time // Used for expiry.
}

// Finished reports whether nothing more can be played on this game.
func (g *Game) Finished() bool {
	if g.Match != nil {
		return g.Match.Phase == PhaseFinished
	}
	return g.Session == nil || g.Session.Finished()
}
