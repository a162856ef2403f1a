// internal/ledger/sqlite.go
//
// SQLite-backed ledger.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Best-of upserts for single-player scores, inserts for match history.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessmaster/assets"
	"github.com/robalobadob/guessmaster/internal/game"
)

// SQLite is a Ledger stored in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at dsn and migrates it.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if err := migrate(db, assets.Migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return &SQLite{db: db}, nil
}

/**
 * openDB opens (and creates if missing) a SQLite database file.
 *
 * - Ensures parent directory exists for relative DSNs (e.g. ./data/scores.db).
 * - Configures busy timeout and WAL journaling mode.
 */
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// One writer keeps read-modify-write sequences strictly ordered.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

/**
 * migrate applies *.sql files from fsys in lexical order.
 *
 * - Uses a _migrations table to track applied files.
 * - Each file runs inside its own transaction.
 */
func migrate(db *sql.DB, fsys fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// Best returns the stored best for difficulty.
func (s *SQLite) Best(ctx context.Context, difficulty string) (int, bool, error) {
	var best int
	err := s.db.QueryRowContext(ctx,
		`SELECT attempts FROM single_scores WHERE difficulty=?`, difficulty,
	).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return best, true, nil
}

// RecordSingle upserts only when the new score is lower; RowsAffected tells
// whether the row changed.
func (s *SQLite) RecordSingle(ctx context.Context, difficulty string, attempts int) (bool, error) {
	if err := validAttempts(attempts); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO single_scores (difficulty, attempts, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(difficulty) DO UPDATE
            SET attempts = excluded.attempts, updated_at = excluded.updated_at
            WHERE excluded.attempts < single_scores.attempts`,
		difficulty, attempts, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if n > 0 {
		log.Info().Str("difficulty", difficulty).Int("attempts", attempts).Msg("new high score saved")
	}
	return n > 0, nil
}

// RecordMatch inserts rec; history is append-only.
func (s *SQLite) RecordMatch(ctx context.Context, rec MatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO match_results (id, player1, player2, score1, score2, winner, played_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Player1, rec.Player2, rec.Score1, rec.Score2, rec.Winner,
		rec.PlayedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return nil
}

// Singles returns difficulty → best attempts.
func (s *SQLite) Singles(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT difficulty, attempts FROM single_scores`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Matches returns match history in insertion order.
func (s *SQLite) Matches(ctx context.Context) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, player1, player2, score1, score2, winner, played_at
        FROM match_results
        ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var r MatchRecord
		var played string
		if err := rows.Scan(&r.ID, &r.Player1, &r.Player2, &r.Score1, &r.Score2, &r.Winner, &played); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		r.PlayedAt, _ = time.Parse(time.RFC3339Nano, played)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reset empties the table backing mode.
func (s *SQLite) Reset(ctx context.Context, mode game.Mode) error {
	table := "single_scores"
	if mode == game.ModeMulti {
		table = "match_results"
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	log.Info().Str("mode", string(mode)).Msg("scores reset")
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }
