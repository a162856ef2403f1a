// Package ledger persists best single-player scores and two-player match history.
//
// Two backends share one contract:
//   - File: a human-readable JSON file per mode, rewritten wholesale.
//   - SQLite: the same data in two tables.
//
// Single-player entries are best-of (only ever decrease). Match history is
// append-only and kept in chronological order.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/guessmaster/internal/game"
)

var (
	// ErrLedgerUnavailable wraps storage failures. Gameplay treats it as non-fatal.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrInvalidScore      = errors.New("invalid score")
)

// MatchRecord is one finished two-player match.
type MatchRecord struct {
	ID       string    `json:"id"`
	Player1  string    `json:"player1"`
	Player2  string    `json:"player2"`
	Score1   int       `json:"score1"`
	Score2   int       `json:"score2"`
	Winner   string    `json:"winner,omitempty"` // empty on a tie
	PlayedAt time.Time `json:"played_at"`
}

// Ledger is the score store used by the game manager and the console.
type Ledger interface {
	// Best returns the stored best for difficulty; ok is false when none exists.
	Best(ctx context.Context, difficulty string) (best int, ok bool, err error)

	// RecordSingle stores attempts if it beats the current best and reports
	// whether it did.
	RecordSingle(ctx context.Context, difficulty string, attempts int) (bool, error)

	// RecordMatch appends a match to the history.
	RecordMatch(ctx context.Context, rec MatchRecord) error

	// Singles returns difficulty → best attempts.
	Singles(ctx context.Context) (map[string]int, error)

	// Matches returns the history, oldest first.
	Matches(ctx context.Context) ([]MatchRecord, error)

	// Reset clears all entries for a mode.
	Reset(ctx context.Context, mode game.Mode) error

	Close() error
}

// NewMatchRecord builds a history entry from a finished match.
func NewMatchRecord(m *game.Match, at time.Time) MatchRecord {
	out := m.Outcome()
	return MatchRecord{
		ID:       game.NewID(),
		Player1:  m.Player1,
		Player2:  m.Player2,
		Score1:   out.Scores[m.Player1],
		Score2:   out.Scores[m.Player2],
		Winner:   out.Winner,
		PlayedAt: at.UTC(),
	}
}

// winner derives the winner from scores, lower wins; empty on a tie.
func (r MatchRecord) winner() string {
	switch {
	case r.Score1 < r.Score2:
		return r.Player1
	case r.Score2 < r.Score1:
		return r.Player2
	}
	return ""
}

// Normalize validates a record received from a client and fills derived fields.
func (r MatchRecord) Normalize(at time.Time) (MatchRecord, error) {
	if r.Player1 == "" || r.Player2 == "" || r.Player1 == r.Player2 {
		return r, fmt.Errorf("%w: two distinct player names are required", ErrInvalidScore)
	}
	if r.Score1 <= 0 || r.Score2 <= 0 {
		return r, fmt.Errorf("%w: scores must be positive", ErrInvalidScore)
	}
	if r.ID == "" {
		r.ID = game.NewID()
	}
	if r.PlayedAt.IsZero() {
		r.PlayedAt = at.UTC()
	}
	if r.Winner == "" {
		r.Winner = r.winner()
	}
	return r, nil
}

func validAttempts(attempts int) error {
	if attempts <= 0 {
		return fmt.Errorf("%w: attempts must be positive, got %d", ErrInvalidScore, attempts)
	}
	return nil
}
