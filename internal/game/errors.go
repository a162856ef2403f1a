package game

import "errors"

var (
	// ErrInvalidGuess marks input rejected without consuming an attempt.
	ErrInvalidGuess = errors.New("invalid guess")
	// ErrNoActiveSession is returned for missing, expired or finished games.
	ErrNoActiveSession = errors.New("no active game session")
	ErrInvalidRange    = errors.New("invalid range")
	ErrInvalidPlayers  = errors.New("invalid players")
	// ErrWrongPhase is returned when a match step arrives out of order,
	// e.g. a guess before the chooser has set a number.
	ErrWrongPhase        = errors.New("not allowed at this time")
	ErrUnknownDifficulty = errors.New("invalid difficulty level")
)
