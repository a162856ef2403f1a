// internal/game/match.go
//
// Two-player variant.
// Round 1: Player1 chooses a number, Player2 guesses it.
// Round 2: roles swap and a fresh Session is played.
// The player who needed fewer attempts wins; equal scores tie.
//
// Phases per round: waiting_for_number → in_progress; after round 2 the
// match is finished and immutable.

package game

import (
	"fmt"
	"strings"
	"unicode"
)

// Phase is the step a Match is waiting on.
type Phase string

const (
	PhaseWaitingForNumber Phase = "waiting_for_number"
	PhaseInProgress       Phase = "in_progress"
	PhaseFinished         Phase = "finished"
)

// LossPolicy decides how a round the guesser failed is scored.
type LossPolicy string

const (
	// LossMaxAttempts scores a failed round as the attempt limit.
	LossMaxAttempts LossPolicy = "max_attempts"
	// LossDisqualify makes a failed guesser unable to win the match.
	LossDisqualify LossPolicy = "disqualify"
)

// ParseLossPolicy accepts the configured policy name; empty means the default.
func ParseLossPolicy(s string) (LossPolicy, error) {
	switch LossPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LossMaxAttempts:
		return LossMaxAttempts, nil
	case LossDisqualify:
		return LossDisqualify, nil
	}
	return "", fmt.Errorf("unknown loss policy %q", s)
}

// RoundResult records how one guesser fared.
type RoundResult struct {
	Chooser  string `json:"chooser"`
	Guesser  string `json:"guesser"`
	Attempts int    `json:"attempts"`
	Solved   bool   `json:"solved"`
}

// MatchOutcome is the final comparison of a finished match.
type MatchOutcome struct {
	Scores map[string]int `json:"scores"`
	Winner string         `json:"winner,omitempty"`
	Tie    bool           `json:"tie"`
}

// Match holds the state of a two-player game.
type Match struct {
	Player1     string
	Player2     string
	Range       Range
	MaxAttempts int
	Policy      LossPolicy
	Round       int      // 1 or 2
	Phase       Phase    // what the match is waiting for
	Session     *Session // current round, nil while waiting for a number
	Rounds      []RoundResult
}

// NewMatch validates player names and returns a match waiting for Player1's number.
func NewMatch(player1, player2 string, rng Range, maxAttempts int, policy LossPolicy) (*Match, error) {
	player1, player2 = strings.TrimSpace(player1), strings.TrimSpace(player2)
	if err := ValidatePlayerName(player1); err != nil {
		return nil, err
	}
	if err := ValidatePlayerName(player2); err != nil {
		return nil, err
	}
	if player1 == player2 {
		return nil, fmt.Errorf("%w: players must have different names", ErrInvalidPlayers)
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: max attempts must be positive", ErrInvalidRange)
	}
	if policy == "" {
		policy = LossMaxAttempts
	}
	return &Match{
		Player1:     player1,
		Player2:     player2,
		Range:       rng,
		MaxAttempts: maxAttempts,
		Policy:      policy,
		Round:       1,
		Phase:       PhaseWaitingForNumber,
	}, nil
}

// ValidatePlayerName requires a non-empty name made of letters and spaces.
func ValidatePlayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: player name cannot be empty", ErrInvalidPlayers)
	}
	for _, r := range name {
		if r != ' ' && !unicode.IsLetter(r) {
			return fmt.Errorf("%w: player name should only contain letters", ErrInvalidPlayers)
		}
	}
	return nil
}

// Chooser is the player who sets the number for the current round.
func (m *Match) Chooser() string {
	if m.Round == 1 {
		return m.Player1
	}
	return m.Player2
}

// Guesser is the player who guesses in the current round.
func (m *Match) Guesser() string {
	if m.Round == 1 {
		return m.Player2
	}
	return m.Player1
}

// SetTarget starts the current round with the chooser's secret number.
func (m *Match) SetTarget(n int) error {
	if m.Phase != PhaseWaitingForNumber {
		return fmt.Errorf("%w: cannot set target number in phase %s", ErrWrongPhase, m.Phase)
	}
	s, err := NewSession(n, m.Range, m.MaxAttempts)
	if err != nil {
		return err
	}
	m.Session = s
	m.Phase = PhaseInProgress
	return nil
}

// SubmitGuess applies the current guesser's guess. When the round ends its
// result is recorded and the match advances to the next round or finishes.
func (m *Match) SubmitGuess(n int) (Result, error) {
	switch m.Phase {
	case PhaseFinished:
		return Result{}, fmt.Errorf("%w: match finished", ErrNoActiveSession)
	case PhaseWaitingForNumber:
		return Result{}, fmt.Errorf("%w: %s has not chosen a number yet", ErrWrongPhase, m.Chooser())
	}
	res, err := m.Session.SubmitGuess(n)
	if err != nil {
		return res, err
	}
	if res.Finished() {
		m.Rounds = append(m.Rounds, RoundResult{
			Chooser:  m.Chooser(),
			Guesser:  m.Guesser(),
			Attempts: res.Attempts,
			Solved:   res.Outcome == OutcomeWin,
		})
		m.Session = nil
		if m.Round == 1 {
			m.Round = 2
			m.Phase = PhaseWaitingForNumber
		} else {
			m.Phase = PhaseFinished
		}
	}
	return res, nil
}

// Score is the recorded score for a player, or 0 if they have not guessed yet.
func (m *Match) Score(player string) int {
	for _, r := range m.Rounds {
		if r.Guesser != player {
			continue
		}
		if !r.Solved && m.Policy == LossMaxAttempts {
			return m.MaxAttempts
		}
		return r.Attempts
	}
	return 0
}

func (m *Match) solved(player string) bool {
	for _, r := range m.Rounds {
		if r.Guesser == player {
			return r.Solved
		}
	}
	return false
}

// Outcome compares both players. It is only meaningful once the match is finished.
func (m *Match) Outcome() MatchOutcome {
	s1, s2 := m.Score(m.Player1), m.Score(m.Player2)
	out := MatchOutcome{Scores: map[string]int{m.Player1: s1, m.Player2: s2}}

	if m.Policy == LossDisqualify {
		ok1, ok2 := m.solved(m.Player1), m.solved(m.Player2)
		switch {
		case ok1 && !ok2:
			out.Winner = m.Player1
			return out
		case ok2 && !ok1:
			out.Winner = m.Player2
			return out
		case !ok1 && !ok2:
			out.Tie = true
			return out
		}
	}

	switch {
	case s1 < s2:
		out.Winner = m.Player1
	case s2 < s1:
		out.Winner = m.Player2
	default:
		out.Tie = true
	}
	return out
}
