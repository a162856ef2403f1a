package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/ledger"
	"github.com/robalobadob/guessmaster/internal/manager"
	"github.com/robalobadob/guessmaster/internal/store"
)

type fixture struct {
	games  *manager.Manager
	store  store.Store
	ledger ledger.Ledger
}

func newFixture(t *testing.T, target func(game.Range) int) fixture {
	t.Helper()
	lg, err := ledger.OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	st := store.NewMemoryStore()
	return fixture{
		games:  manager.New(st, lg, manager.Options{Target: target}),
		store:  st,
		ledger: lg,
	}
}

func fixed(n int) func(game.Range) int { return func(game.Range) int { return n } }

func (f fixture) console(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return New(f.games, strings.NewReader(input), &out), &out
}

func wantLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(out, l) {
			t.Errorf("output missing %q\n--- output ---\n%s", l, out)
		}
	}
}

func TestPlaySingleWin(t *testing.T) {
	f := newFixture(t, fixed(42))
	c, out := f.console("medium\n50\n42\n")

	if err := c.PlaySingle(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	wantLines(t, out.String(),
		"I have chosen a number between 1 and 100. You have 7 attempts!",
		"Too high! 6 attempts remaining.",
		"Congratulations! You guessed the number in 2 attempts!",
		"New best score for medium!",
	)
	if best, ok, _ := f.ledger.Best(context.Background(), game.TierMedium); !ok || best != 2 {
		t.Fatalf("best = %d %v", best, ok)
	}
}

func TestPlaySingleRepromptsOnBadInput(t *testing.T) {
	f := newFixture(t, fixed(42))
	c, out := f.console("0\nmedium\nabc\n0\n101\n42\n")

	if err := c.PlaySingle(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	wantLines(t, out.String(),
		"Please enter a number from 1 to 5.",
		"Invalid input! Please enter a valid integer.",
		"Please enter a number greater than or equal to 1.",
		"Please enter a number less than or equal to 100.",
		"You guessed the number in 1 attempts!",
	)
}

func TestPlaySingleCustomLoss(t *testing.T) {
	f := newFixture(t, func(r game.Range) int { return r.High })
	// Custom 1..10 allows 4 attempts.
	c, out := f.console("custom\n1\n1\n10\n1\n2\n3\n4\n")

	if err := c.PlaySingle(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	wantLines(t, out.String(),
		"Please enter a number greater than or equal to 2.",
		"You have 4 attempts!",
		"Too low! 1 attempts remaining.",
		"Out of attempts! The number was 10. Better luck next time!",
	)
	if s, _ := f.ledger.Singles(context.Background()); len(s) != 0 {
		t.Fatalf("loss recorded: %v", s)
	}
}

func TestPlaySingleInterruptedEndsGame(t *testing.T) {
	f := newFixture(t, fixed(42))
	c, _ := f.console("easy\n10\n")

	if err := c.PlaySingle(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want EOF", err)
	}
	if f.store.Len() != 0 {
		t.Fatal("abandoned game still registered")
	}
}

func TestPlayMulti(t *testing.T) {
	f := newFixture(t, nil)
	input := strings.Join([]string{
		"R2D2", "Alice", // rejected, then player 1
		"Alice", "Bob", // duplicate rejected, then player 2
		"40", "10", "20", "30", "50", "40", // round 1: Bob needs 5
		"70", "abc", "50", "80", "70", // round 2: Alice needs 3
	}, "\n") + "\n"
	c, out := f.console(input)

	if err := c.PlayMulti(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	wantLines(t, out.String(),
		"player name should only contain letters. Try again.",
		"Player 2 must have a different name! Try again.",
		"Alice, pick a secret number for Bob to guess!",
		"Bob guessed it in 5 attempts!",
		"Bob, pick a secret number for Alice to guess!",
		"Invalid input! Please enter a valid integer.",
		"Alice guessed it in 3 attempts!",
		"Alice took 3 attempts.",
		"Bob took 5 attempts.",
		"Alice wins!",
	)

	hist, err := f.ledger.Matches(context.Background())
	if err != nil || len(hist) != 1 || hist[0].Winner != "Alice" {
		t.Fatalf("history = %+v, %v", hist, err)
	}
}

func TestShowScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	c, out := f.console("")

	c.ShowScores(ctx, game.ModeSingle)
	c.ShowScores(ctx, game.ModeMulti)
	wantLines(t, out.String(), "No high scores yet.", "No results yet!")

	out.Reset()
	_, _ = f.ledger.RecordSingle(ctx, game.TierHard, 7)
	_, _ = f.ledger.RecordSingle(ctx, game.TierEasy, 3)
	_ = f.ledger.RecordMatch(ctx, ledger.MatchRecord{ID: "m1", Player1: "Ann", Player2: "Ben", Score1: 4, Score2: 4})
	c.ShowScores(ctx, game.ModeSingle)
	c.ShowScores(ctx, game.ModeMulti)

	s := out.String()
	wantLines(t, s, "easy: 3 attempts", "hard: 7 attempts", "Ann 4 : 4 Ben  (tie)")
	if strings.Index(s, "easy:") > strings.Index(s, "hard:") {
		t.Errorf("tiers out of order:\n%s", s)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, _ = f.ledger.RecordSingle(ctx, game.TierEasy, 3)

	c, out := f.console("no\n")
	if err := c.Reset(ctx, game.ModeSingle); err != nil {
		t.Fatal(err)
	}
	wantLines(t, out.String(), "Reset cancelled.")
	if s, _ := f.ledger.Singles(ctx); len(s) != 1 {
		t.Fatalf("scores cleared without confirmation: %v", s)
	}

	c, out = f.console("reset\n")
	if err := c.Reset(ctx, game.ModeSingle); err != nil {
		t.Fatal(err)
	}
	wantLines(t, out.String(), "Scores have been reset!")
	if s, _ := f.ledger.Singles(ctx); len(s) != 0 {
		t.Fatalf("scores after reset = %v", s)
	}
}

func TestRunMenu(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exit", "6\n", "Thanks for playing!"},
		{"invalid then exit", "9\n6\n", "Invalid choice! Please enter a number from 1 to 6."},
		{"end of input", "", "Thanks for playing!"},
		{"interrupted game", "1\n", "Game interrupted."},
		{"scores", "2\n6\n", "No high scores yet."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			c, out := f.console(tt.input)
			if err := c.Run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}
			wantLines(t, out.String(), tt.want)
		})
	}
}
