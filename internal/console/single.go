package console

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/robalobadob/guessmaster/internal/game"
)

// chooseDifficulty accepts a menu number or a tier name.
func (c *Console) chooseDifficulty() (string, *game.Range, error) {
	tiers := c.games.Tiers()
	names := append(tiers.Names(), game.TierCustom)

	c.println()
	c.println("Choose a Difficulty Level")
	for i, name := range names {
		if name == game.TierCustom {
			c.printf("%d. Custom Range\n", i+1)
			continue
		}
		t := tiers[name]
		c.printf("%d. %s (%d to %d, %d attempts)\n", i+1, titleCase(name), t.Range.Low, t.Range.High, t.MaxAttempts)
	}

	var choice string
	for choice == "" {
		text, err := c.readLine("Enter 1-" + strconv.Itoa(len(names)) + ": ")
		if err != nil {
			return "", nil, err
		}
		if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(names) {
			choice = names[n-1]
			break
		}
		for _, name := range names {
			if strings.EqualFold(text, name) {
				choice = name
			}
		}
		if choice == "" {
			c.printf("Please enter a number from 1 to %d.\n", len(names))
		}
	}
	if choice != game.TierCustom {
		return choice, nil, nil
	}

	low, err := c.readNumber("Enter the starting number: ", game.CustomMin, game.CustomMax-1, false)
	if err != nil {
		return "", nil, err
	}
	high, err := c.readNumber("Enter a number greater than "+strconv.Itoa(low)+": ", low+1, game.CustomMax, false)
	if err != nil {
		return "", nil, err
	}
	return game.TierCustom, &game.Range{Low: low, High: high}, nil
}

// PlaySingle runs one single-player game from difficulty choice to result.
func (c *Console) PlaySingle(ctx context.Context) error {
	c.println("Welcome to Single Player Mode!")
	difficulty, custom, err := c.chooseDifficulty()
	if err != nil {
		return err
	}
	started, err := c.games.StartSingle(ctx, difficulty, custom)
	if err != nil {
		c.printf("Could not start the game: %v\n", err)
		return nil
	}
	// Ending a finished game is a no-op; this only matters when input runs out.
	defer func() { _ = c.games.End(ctx, started.GameID) }()

	r := started.Range
	c.printf("\nI have chosen a number between %d and %d. You have %d attempts!\n", r.Low, r.High, started.MaxAttempts)
	for {
		guess, err := c.readNumber("Enter your guess: ", r.Low, r.High, false)
		if err != nil {
			return err
		}
		res, err := c.games.Guess(ctx, started.GameID, guess)
		if errors.Is(err, game.ErrInvalidGuess) {
			c.printf("%v\n", err)
			continue
		}
		if err != nil {
			c.printf("Game ended: %v\n", err)
			return nil
		}

		switch res.Outcome {
		case game.OutcomeWin:
			c.printf("Congratulations! You guessed the number in %d attempts!\n", res.Attempts)
			if res.NewBest {
				c.printf("New best score for %s!\n", started.Difficulty)
			}
			return nil
		case game.OutcomeLose:
			c.printf("Out of attempts! The number was %d. Better luck next time!\n", res.Target)
			return nil
		default:
			c.println(hintLine(res.Result))
		}
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func hintLine(res game.Result) string {
	if res.Hint == game.HintLower {
		return "Too high! " + strconv.Itoa(res.Remaining) + " attempts remaining."
	}
	return "Too low! " + strconv.Itoa(res.Remaining) + " attempts remaining."
}

// ShowScores prints the ledger for mode.
func (c *Console) ShowScores(ctx context.Context, mode game.Mode) {
	if mode == game.ModeMulti {
		c.showMatches(ctx)
		return
	}

	scores := c.games.SingleScores(ctx)
	if len(scores) == 0 {
		c.println("No high scores yet. Be the first to set one!")
		return
	}
	// Known tiers in menu order, then anything else (custom) by name.
	order := c.games.Tiers().Names()
	var extra []string
	for name := range scores {
		if _, ok := c.games.Tiers()[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	c.println()
	c.println("High Scores")
	for _, name := range append(order, extra...) {
		if best, ok := scores[name]; ok {
			c.printf("%s: %d attempts\n", name, best)
		}
	}
}
