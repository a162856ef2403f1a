package console

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/manager"
)

// screenGap pushes a visible secret off screen when input could not be hidden.
const screenGap = 40

func (c *Console) readPlayerName(n int, taken string) (string, error) {
	for {
		name, err := c.readLine("Enter Player " + strconv.Itoa(n) + "'s name: ")
		if err != nil {
			return "", err
		}
		if err := game.ValidatePlayerName(name); err != nil {
			c.println(strings.TrimPrefix(err.Error(), game.ErrInvalidPlayers.Error()+": ") + ". Try again.")
			continue
		}
		if taken != "" && name == taken {
			c.printf("Player %d must have a different name! Try again.\n", n)
			continue
		}
		return name, nil
	}
}

// PlayMulti runs a two-round match on one keyboard.
func (c *Console) PlayMulti(ctx context.Context) error {
	c.println()
	c.println("Multiplayer Mode: Player vs. Player")
	p1, err := c.readPlayerName(1, "")
	if err != nil {
		return err
	}
	p2, err := c.readPlayerName(2, p1)
	if err != nil {
		return err
	}

	started, err := c.games.StartMulti(ctx, p1, p2)
	if err != nil {
		c.printf("Could not start the match: %v\n", err)
		return nil
	}
	defer func() { _ = c.games.End(ctx, started.GameID) }()

	id, r := started.GameID, started.Range
	state := *started.Match
	for state.Status != game.PhaseFinished {
		chooser, guesser := state.Chooser, state.Guesser

		c.printf("\n%s, pick a secret number for %s to guess!\n", chooser, guesser)
		secret, err := c.readNumber("Enter a secret number ("+r.String()+"): ", r.Low, r.High, true)
		if err != nil {
			return err
		}
		if c.readSecret == nil {
			c.printf("%s", strings.Repeat("\n", screenGap))
		}
		if state, err = c.games.SetTarget(ctx, id, secret); err != nil {
			c.printf("Match ended: %v\n", err)
			return nil
		}

		for state.Status == game.PhaseInProgress {
			guess, err := c.readNumber(guesser+", enter your guess: ", r.Low, r.High, false)
			if err != nil {
				return err
			}
			res, err := c.games.Guess(ctx, id, guess)
			if errors.Is(err, game.ErrInvalidGuess) {
				c.printf("%v\n", err)
				continue
			}
			if err != nil {
				c.printf("Match ended: %v\n", err)
				return nil
			}
			state = *res.Match

			switch res.Outcome {
			case game.OutcomeWin:
				c.printf("%s guessed it in %d attempts!\n", guesser, res.Attempts)
			case game.OutcomeLose:
				c.printf("\n%s ran out of attempts! The correct number was %d.\n", guesser, res.Target)
				c.printf("%s wins this round by default!\n", chooser)
			default:
				c.println(hintLine(res.Result))
			}
		}
	}

	c.printResults(p1, p2, state)
	return nil
}

func (c *Console) printResults(p1, p2 string, state manager.MatchState) {
	c.println()
	c.println("Game Over! Final Results:")
	if state.Outcome == nil {
		return
	}
	out := state.Outcome
	c.printf("%s took %d attempts.\n", p1, out.Scores[p1])
	c.printf("%s took %d attempts.\n", p2, out.Scores[p2])
	if out.Tie {
		c.println("It's a tie!")
		return
	}
	c.printf("%s wins!\n", out.Winner)
}

// matchesPerPage bounds how much history is printed at once.
const matchesPerPage = 10

func (c *Console) showMatches(ctx context.Context) {
	hist := c.games.MatchHistory(ctx)
	if len(hist) == 0 {
		c.println("No results yet! Play Multiplayer Mode to set records.")
		return
	}

	c.println()
	c.println("Recent Multiplayer Matches")
	start := 0
	if len(hist) > matchesPerPage {
		start = len(hist) - matchesPerPage
	}
	// Newest first.
	for i := len(hist) - 1; i >= start; i-- {
		m := hist[i]
		result := "tie"
		if m.Winner != "" {
			result = m.Winner + " won"
		}
		c.printf("%s  %s %d : %d %s  (%s)\n",
			m.PlayedAt.Format("2006-01-02 15:04"), m.Player1, m.Score1, m.Score2, m.Player2, result)
	}
}
