// internal/game/engine.go
//
// Core engine for a single guessing round.
// Responsibilities:
//   - Create sessions with a target, an inclusive range and an attempt limit.
//   - Validate and apply guesses (range check before anything is consumed).
//   - Produce directional hints.
//   - Track state transitions: playing → won/lost (terminal).
//
// Notes:
//   - Targets are chosen by the caller; RandomTarget covers the usual case.
//   - NewID() hands out the identifiers used by the session registry.
package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Session holds the state of one round.
type Session struct {
	Target      int    // Secret number, always inside Range.
	Range       Range  // Inclusive bounds for the target and every guess.
	MaxAttempts int    // Attempts allowed before the round is lost.
	Attempts    int    // Evaluated guesses so far.
	Status      Status // playing | won | lost
}

// NewSession validates its inputs and returns a session in the playing state.
func NewSession(target int, rng Range, maxAttempts int) (*Session, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: max attempts must be positive", ErrInvalidRange)
	}
	if !rng.Contains(target) {
		return nil, fmt.Errorf("%w: number must be between %d and %d", ErrInvalidGuess, rng.Low, rng.High)
	}
	return &Session{
		Target:      target,
		Range:       rng,
		MaxAttempts: maxAttempts,
		Status:      StatusPlaying,
	}, nil
}

// SubmitGuess validates and evaluates a guess, mutating the session.
//
// Validation rules:
//   - Session must still be playing (ErrNoActiveSession otherwise).
//   - Guess must lie inside Range (ErrInvalidGuess); rejected guesses cost nothing.
//
// State transitions, in order:
//   - guess == target → won.
//   - attempts reach MaxAttempts → lost.
//   - otherwise stay playing and hint towards the target.
func (s *Session) SubmitGuess(guess int) (Result, error) {
	if s.Finished() {
		return Result{}, fmt.Errorf("%w: round already %s", ErrNoActiveSession, s.Status)
	}
	if !s.Range.Contains(guess) {
		return Result{}, fmt.Errorf("%w: guess must be between %d and %d", ErrInvalidGuess, s.Range.Low, s.Range.High)
	}

	s.Attempts++

	switch {
	case guess == s.Target:
		s.Status = StatusWon
		return Result{Outcome: OutcomeWin, Attempts: s.Attempts}, nil
	case s.Attempts >= s.MaxAttempts:
		s.Status = StatusLost
		return Result{Outcome: OutcomeLose, Attempts: s.Attempts, Target: s.Target}, nil
	}

	hint := HintHigher
	if guess > s.Target {
		hint = HintLower
	}
	return Result{
		Outcome:   OutcomeContinue,
		Attempts:  s.Attempts,
		Remaining: s.Remaining(),
		Hint:      hint,
	}, nil
}

// Remaining is the number of guesses left before the round is lost.
func (s *Session) Remaining() int { return s.MaxAttempts - s.Attempts }

// Finished reports whether the session reached a terminal state.
func (s *Session) Finished() bool { return s.Status != StatusPlaying }

// RandomTarget picks a uniformly distributed integer inside r.
func RandomTarget(r Range) int {
	return r.Low + rand.IntN(r.Size())
}

// NewID returns a random identifier for a game handle.
func NewID() string { return uuid.NewString() }
