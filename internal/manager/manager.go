// internal/manager/manager.go
//
// Game manager shared by the HTTP server and the console.
// Responsibilities:
//   - Start single-player games (tiers, custom ranges, daily target) and
//     two-player matches, registering each under a fresh ID.
//   - Route guesses and chooser numbers to the right game under the registry lock.
//   - Drop games once terminal and hand results to the ledger.
//   - Expire idle games (checked on access and by a periodic sweep).
//
// Ledger failures are logged and never fail a guess.

package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessmaster/internal/config"
	"github.com/robalobadob/guessmaster/internal/daily"
	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/ledger"
	"github.com/robalobadob/guessmaster/internal/store"
)

// ErrSessionExpired is returned for games idle longer than the session timeout.
var ErrSessionExpired = fmt.Errorf("%w: game session has expired", game.ErrNoActiveSession)

// Options tunes the manager. Zero values fall back to the defaults in New.
type Options struct {
	Tiers             game.Tiers
	SingleMaxAttempts int // applied to custom ranges when positive
	MultiRange        game.Range
	MultiMaxAttempts  int
	LossPolicy        game.LossPolicy
	SessionTimeout    time.Duration
	DailySalt         string

	Now    func() time.Time
	Target func(game.Range) int
}

// OptionsFromConfig maps loaded configuration onto manager options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Tiers:             cfg.Tiers(),
		SingleMaxAttempts: cfg.SingleMaxAttempts,
		MultiRange:        cfg.MultiRange(),
		MultiMaxAttempts:  cfg.MultiMaxAttempts,
		LossPolicy:        cfg.Policy(),
		SessionTimeout:    cfg.SessionTimeout,
		DailySalt:         cfg.DailySalt,
	}
}

// Manager owns the registry of active games and the score ledger.
type Manager struct {
	store  store.Store
	ledger ledger.Ledger
	opts   Options
}

// New constructs a Manager.
func New(st store.Store, lg ledger.Ledger, opts Options) *Manager {
	if opts.Tiers == nil {
		opts.Tiers = game.DefaultTiers()
	}
	if opts.MultiRange == (game.Range{}) {
		opts.MultiRange = game.Range{Low: 1, High: 100}
	}
	if opts.MultiMaxAttempts <= 0 {
		opts.MultiMaxAttempts = 8
	}
	if opts.LossPolicy == "" {
		opts.LossPolicy = game.LossMaxAttempts
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Target == nil {
		opts.Target = game.RandomTarget
	}
	return &Manager{store: st, ledger: lg, opts: opts}
}

// Tiers exposes the configured difficulty table (menus, pages).
func (m *Manager) Tiers() game.Tiers { return m.opts.Tiers }

// MultiRange is the range players choose secret numbers from.
func (m *Manager) MultiRange() game.Range { return m.opts.MultiRange }

// ------------------------------- start ------------------------------------

// Started describes a newly registered game.
type Started struct {
	GameID      string      `json:"game_id"`
	Mode        game.Mode   `json:"mode"`
	Difficulty  string      `json:"difficulty,omitempty"`
	Range       game.Range  `json:"range"`
	MaxAttempts int         `json:"max_attempts"`
	Match       *MatchState `json:"match,omitempty"`
}

// StartSingle begins a single-player game. custom is required for the
// "custom" difficulty and ignored otherwise.
func (m *Manager) StartSingle(ctx context.Context, difficulty string, custom *game.Range) (Started, error) {
	tier, err := m.resolveTier(difficulty, custom)
	if err != nil {
		return Started{}, err
	}

	target := m.opts.Target(tier.Range)
	if tier.Daily {
		target = daily.Target(m.opts.Now(), m.opts.DailySalt, tier.Range)
	}
	sess, err := game.NewSession(target, tier.Range, tier.MaxAttempts)
	if err != nil {
		return Started{}, err
	}

	g := &game.Game{
		ID:         game.NewID(),
		Mode:       game.ModeSingle,
		Difficulty: tier.Name,
		Session:    sess,
		StartedAt:  m.opts.Now(),
	}
	if err := m.store.Save(ctx, g); err != nil {
		return Started{}, fmt.Errorf("save game: %w", err)
	}
	log.Debug().Str("gameId", g.ID).Str("difficulty", tier.Name).Str("range", tier.Range.String()).Msg("single-player game started")

	return Started{
		GameID:      g.ID,
		Mode:        g.Mode,
		Difficulty:  tier.Name,
		Range:       tier.Range,
		MaxAttempts: tier.MaxAttempts,
	}, nil
}

func (m *Manager) resolveTier(difficulty string, custom *game.Range) (game.Tier, error) {
	if difficulty == "" {
		return game.Tier{}, fmt.Errorf("%w: difficulty level required", game.ErrUnknownDifficulty)
	}
	if difficulty == game.TierCustom {
		if custom == nil {
			return game.Tier{}, fmt.Errorf("%w: invalid custom range format", game.ErrInvalidRange)
		}
		return game.CustomTier(*custom, m.opts.SingleMaxAttempts)
	}
	return m.opts.Tiers.Lookup(difficulty)
}

// StartMulti begins a two-player match waiting for player1's number.
func (m *Manager) StartMulti(ctx context.Context, player1, player2 string) (Started, error) {
	match, err := game.NewMatch(player1, player2, m.opts.MultiRange, m.opts.MultiMaxAttempts, m.opts.LossPolicy)
	if err != nil {
		return Started{}, err
	}
	g := &game.Game{
		ID:        game.NewID(),
		Mode:      game.ModeMulti,
		Match:     match,
		StartedAt: m.opts.Now(),
	}
	if err := m.store.Save(ctx, g); err != nil {
		return Started{}, fmt.Errorf("save game: %w", err)
	}
	log.Debug().Str("gameId", g.ID).Str("player1", match.Player1).Str("player2", match.Player2).Msg("match started")

	state := matchState(match)
	return Started{
		GameID:      g.ID,
		Mode:        g.Mode,
		Range:       match.Range,
		MaxAttempts: match.MaxAttempts,
		Match:       &state,
	}, nil
}

// ------------------------------- match ------------------------------------

// MatchState is the public view of a match; the secret number never leaves.
type MatchState struct {
	Round   int                `json:"round"`
	Status  game.Phase         `json:"status"`
	Chooser string             `json:"chooser,omitempty"`
	Guesser string             `json:"guesser,omitempty"`
	Rounds  []game.RoundResult `json:"rounds,omitempty"`
	Outcome *game.MatchOutcome `json:"outcome,omitempty"`
}

func matchState(mt *game.Match) MatchState {
	st := MatchState{
		Round:  mt.Round,
		Status: mt.Phase,
		Rounds: append([]game.RoundResult(nil), mt.Rounds...),
	}
	if mt.Phase == game.PhaseFinished {
		out := mt.Outcome()
		st.Outcome = &out
		return st
	}
	st.Chooser, st.Guesser = mt.Chooser(), mt.Guesser()
	return st
}

// SetTarget records the current chooser's secret number.
func (m *Manager) SetTarget(ctx context.Context, id string, n int) (MatchState, error) {
	var st MatchState
	err := m.withGame(ctx, id, func(g *game.Game) error {
		if g.Match == nil {
			return fmt.Errorf("%w: not a two-player game", game.ErrWrongPhase)
		}
		if err := g.Match.SetTarget(n); err != nil {
			return err
		}
		st = matchState(g.Match)
		return nil
	})
	return st, err
}

// ------------------------------- guess ------------------------------------

// GuessResult is what callers get back for a guess.
type GuessResult struct {
	game.Result
	Message string      `json:"message,omitempty"`
	NewBest bool        `json:"new_best,omitempty"`
	Match   *MatchState `json:"match,omitempty"`
}

// Guess evaluates a guess against game id. Finished games are removed from
// the registry and their scores recorded.
func (m *Manager) Guess(ctx context.Context, id string, n int) (GuessResult, error) {
	var (
		out        GuessResult
		difficulty string
		target     int
		finished   *game.Match
	)
	err := m.withGame(ctx, id, func(g *game.Game) error {
		switch g.Mode {
		case game.ModeMulti:
			if g.Match.Session != nil {
				target = g.Match.Session.Target
			}
			res, err := g.Match.SubmitGuess(n)
			if err != nil {
				return err
			}
			out.Result = res
			st := matchState(g.Match)
			out.Match = &st
			if g.Match.Phase == game.PhaseFinished {
				finished = g.Match
			}
		default:
			res, err := g.Session.SubmitGuess(n)
			if err != nil {
				return err
			}
			out.Result = res
			difficulty = g.Difficulty
			target = g.Session.Target
		}
		return nil
	})
	if err != nil {
		return GuessResult{}, err
	}

	switch out.Outcome {
	case game.OutcomeWin:
		out.Message = fmt.Sprintf("Correct! The number was %d", target)
	case game.OutcomeLose:
		out.Message = fmt.Sprintf("Game Over! The number was %d", target)
	}

	if !out.Finished() {
		return out, nil
	}

	if difficulty != "" {
		m.drop(ctx, id)
		if out.Outcome == game.OutcomeWin {
			out.NewBest = m.recordSingle(ctx, difficulty, out.Attempts)
		}
		return out, nil
	}
	if finished != nil {
		m.drop(ctx, id)
		m.recordMatch(ctx, finished)
	}
	return out, nil
}

// withGame runs fn on a live game, expiring it first if it has timed out.
func (m *Manager) withGame(ctx context.Context, id string, fn func(*game.Game) error) error {
	if id == "" {
		return fmt.Errorf("%w: missing game id", game.ErrNoActiveSession)
	}
	expired := false
	err := m.store.Update(ctx, id, func(g *game.Game) error {
		if m.opts.Now().Sub(g.StartedAt) > m.opts.SessionTimeout {
			expired = true
			return ErrSessionExpired
		}
		return fn(g)
	})
	if expired {
		m.drop(ctx, id)
	}
	return err
}

func (m *Manager) drop(ctx context.Context, id string) {
	if err := m.store.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("gameId", id).Msg("drop game")
	}
}

func (m *Manager) recordSingle(ctx context.Context, difficulty string, attempts int) bool {
	improved, err := m.ledger.RecordSingle(ctx, difficulty, attempts)
	if err != nil {
		log.Error().Err(err).Str("difficulty", difficulty).Int("attempts", attempts).Msg("save score")
		return false
	}
	return improved
}

func (m *Manager) recordMatch(ctx context.Context, mt *game.Match) {
	rec := ledger.NewMatchRecord(mt, m.opts.Now())
	if err := m.ledger.RecordMatch(ctx, rec); err != nil {
		log.Error().Err(err).Str("matchId", rec.ID).Msg("save match")
	}
}

// -------------------------------- end -------------------------------------

// End abandons a game without scoring it. Unknown IDs are ignored.
func (m *Manager) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("end game: %w", err)
	}
	log.Debug().Str("gameId", id).Msg("game session ended")
	return nil
}

// ------------------------------- state ------------------------------------

// Snapshot is the resumable view of a game, for clients restoring a page.
type Snapshot struct {
	GameID      string      `json:"game_id"`
	Mode        game.Mode   `json:"mode"`
	Difficulty  string      `json:"difficulty,omitempty"`
	Range       game.Range  `json:"range"`
	MaxAttempts int         `json:"max_attempts"`
	Attempts    int         `json:"attempts"`
	Remaining   int         `json:"remaining"`
	Match       *MatchState `json:"match,omitempty"`
}

// State returns the current view of game id.
func (m *Manager) State(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := m.withGame(ctx, id, func(g *game.Game) error {
		snap = Snapshot{GameID: g.ID, Mode: g.Mode, Difficulty: g.Difficulty}
		if g.Match != nil {
			st := matchState(g.Match)
			snap.Match = &st
			snap.Range, snap.MaxAttempts = g.Match.Range, g.Match.MaxAttempts
			snap.Remaining = g.Match.MaxAttempts
			if s := g.Match.Session; s != nil {
				snap.Attempts, snap.Remaining = s.Attempts, s.Remaining()
			}
			return nil
		}
		s := g.Session
		snap.Range, snap.MaxAttempts = s.Range, s.MaxAttempts
		snap.Attempts, snap.Remaining = s.Attempts, s.Remaining()
		return nil
	})
	return snap, err
}

// ------------------------------- scores -----------------------------------

// SingleScores returns difficulty → best attempts. Storage errors read as empty.
func (m *Manager) SingleScores(ctx context.Context) map[string]int {
	s, err := m.ledger.Singles(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load scores")
		return map[string]int{}
	}
	return s
}

// MatchHistory returns recorded matches, oldest first. Storage errors read as empty.
func (m *Manager) MatchHistory(ctx context.Context) []ledger.MatchRecord {
	h, err := m.ledger.Matches(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load match history")
		return []ledger.MatchRecord{}
	}
	if h == nil {
		h = []ledger.MatchRecord{}
	}
	return h
}

// RecordMatch stores a match reported by a client.
func (m *Manager) RecordMatch(ctx context.Context, rec ledger.MatchRecord) (ledger.MatchRecord, error) {
	rec, err := rec.Normalize(m.opts.Now())
	if err != nil {
		return rec, err
	}
	if err := m.ledger.RecordMatch(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// ResetScores clears a mode's ledger.
func (m *Manager) ResetScores(ctx context.Context, mode game.Mode) error {
	return m.ledger.Reset(ctx, mode)
}

// -------------------------------- sweep -----------------------------------

// Sweep drops games older than the session timeout and returns how many went.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	expired, err := m.store.Sweep(ctx, m.opts.Now().Add(-m.opts.SessionTimeout))
	if err != nil {
		return 0, err
	}
	for _, id := range expired {
		log.Info().Str("gameId", id).Msg("game session expired")
	}
	return len(expired), nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-t.C:
			if _, err := m.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("sweep expired games")
			}
		}
	}
}
