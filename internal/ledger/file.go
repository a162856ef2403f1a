package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessmaster/internal/game"
)

// File names inside the data directory.
const (
	SingleFileName = "singleplayer_scores.json"
	MultiFileName  = "multiplayer_scores.json"
)

// File is a JSON-file ledger. Each update is a read-modify-write under mu,
// finished by an atomic rename of a temp file.
type File struct {
	mu         sync.Mutex
	singlePath string
	multiPath  string
}

// OpenFile creates dir if needed and returns a ledger rooted there.
// Missing files are not created until the first write.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrLedgerUnavailable, dir, err)
	}
	return &File{
		singlePath: filepath.Join(dir, SingleFileName),
		multiPath:  filepath.Join(dir, MultiFileName),
	}, nil
}

// Best returns the recorded best for difficulty.
func (f *File) Best(ctx context.Context, difficulty string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	best, ok := f.viewSingles()[difficulty]
	return best, ok, nil
}

// RecordSingle stores attempts when they beat the current best. An
// unreadable file is left untouched and reported as ErrLedgerUnavailable.
func (f *File) RecordSingle(ctx context.Context, difficulty string, attempts int) (bool, error) {
	if err := validAttempts(attempts); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	scores, err := f.readSingles()
	if err != nil {
		return false, err
	}
	if cur, ok := scores[difficulty]; ok && attempts >= cur {
		return false, nil
	}
	scores[difficulty] = attempts
	if err := writeJSONAtomic(f.singlePath, scores); err != nil {
		return false, err
	}
	log.Info().Str("difficulty", difficulty).Int("attempts", attempts).Msg("new high score saved")
	return true, nil
}

// RecordMatch appends rec to the match history. An unreadable history file
// is never overwritten.
func (f *File) RecordMatch(ctx context.Context, rec MatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	history, err := f.readMatches()
	if err != nil {
		return err
	}
	if err := writeJSONAtomic(f.multiPath, append(history, rec)); err != nil {
		return err
	}
	log.Info().Str("player1", rec.Player1).Str("player2", rec.Player2).
		Int("score1", rec.Score1).Int("score2", rec.Score2).Msg("match saved")
	return nil
}

// Singles returns difficulty → best attempts.
func (f *File) Singles(ctx context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewSingles(), nil
}

// Matches returns the match history in the order it was recorded.
func (f *File) Matches(ctx context.Context) ([]MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history, err := f.readMatches()
	if err != nil {
		log.Warn().Err(err).Str("path", f.multiPath).Msg("read match history; showing none")
		return nil, nil
	}
	return history, nil
}

// Reset deletes the file backing mode.
func (f *File) Reset(ctx context.Context, mode game.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := f.singlePath
	if mode == game.ModeMulti {
		path = f.multiPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrLedgerUnavailable, path, err)
	}
	log.Info().Str("mode", string(mode)).Msg("scores reset")
	return nil
}

// Close is a no-op; every write is already on disk.
func (f *File) Close() error { return nil }

// viewSingles is readSingles for read-only callers: unreadable reads as empty.
func (f *File) viewSingles() map[string]int {
	scores, err := f.readSingles()
	if err != nil {
		log.Warn().Err(err).Str("path", f.singlePath).Msg("read scores; showing none")
		return map[string]int{}
	}
	return scores
}

// readSingles loads the best-score map. A missing file is empty; invalid
// entries are dropped.
func (f *File) readSingles() (map[string]int, error) {
	raw := map[string]int{}
	if err := readJSON(f.singlePath, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		if v > 0 {
			out[k] = v
		}
	}
	return out, nil
}

func (f *File) readMatches() ([]MatchRecord, error) {
	var out []MatchRecord
	if err := readJSON(f.multiPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// readJSON decodes path into v. A missing file leaves v as is; anything
// else that stops a clean decode is ErrLedgerUnavailable.
func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrLedgerUnavailable, path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: invalid scores file %s: %v", ErrLedgerUnavailable, path, err)
	}
	return nil
}

// writeJSONAtomic writes v next to path and renames it into place.
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrLedgerUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrLedgerUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrLedgerUnavailable, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrLedgerUnavailable, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrLedgerUnavailable, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrLedgerUnavailable, path, err)
	}
	return nil
}
