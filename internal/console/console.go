// Package console runs GuessMaster as an interactive terminal game.
//
// It drives the same manager the HTTP server uses, so scoring, expiry and
// the ledger behave identically in both front ends. Invalid input is never
// fatal: every prompt repeats until it gets something usable or input ends.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/manager"
)

// Console reads player input from in and writes prompts and results to out.
type Console struct {
	games *manager.Manager
	in    *bufio.Reader
	out   io.Writer

	// readSecret reads a line without echo; nil means the terminal cannot hide input.
	readSecret func() (string, error)
}

// New builds a Console. When in is a terminal, secret numbers are read without echo.
func New(games *manager.Manager, in io.Reader, out io.Writer) *Console {
	c := &Console{games: games, in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		c.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return c
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// readLine returns the next trimmed line. io.EOF is only returned once
// nothing is left to read.
func (c *Console) readLine(prompt string) (string, error) {
	c.printf("%s", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readNumber prompts until it gets an integer in [lo, hi].
func (c *Console) readNumber(prompt string, lo, hi int, hidden bool) (int, error) {
	for {
		var (
			text string
			err  error
		)
		if hidden && c.readSecret != nil {
			c.printf("%s", prompt)
			text, err = c.readSecret()
			text = strings.TrimSpace(text)
		} else {
			text, err = c.readLine(prompt)
		}
		if err != nil {
			return 0, err
		}

		n, err := strconv.Atoi(text)
		switch {
		case err != nil:
			c.println("Invalid input! Please enter a valid integer.")
		case n < lo:
			c.printf("Please enter a number greater than or equal to %d.\n", lo)
		case n > hi:
			c.printf("Please enter a number less than or equal to %d.\n", hi)
		default:
			return n, nil
		}
	}
}

// Run shows the main menu until the player exits or input ends.
func (c *Console) Run(ctx context.Context) error {
	for {
		c.println()
		c.println("Welcome to GuessMaster")
		c.println("1. Play Single Player")
		c.println("2. View Single Player High Scores")
		c.println("3. Play Multiplayer")
		c.println("4. View Multiplayer Results")
		c.println("5. Reset Scores")
		c.println("6. Exit")

		choice, err := c.readLine("Enter your choice (1-6): ")
		if errors.Is(err, io.EOF) {
			c.println()
			c.println("Thanks for playing!")
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = c.PlaySingle(ctx)
		case "2":
			c.ShowScores(ctx, game.ModeSingle)
		case "3":
			err = c.PlayMulti(ctx)
		case "4":
			c.ShowScores(ctx, game.ModeMulti)
		case "5":
			err = c.Reset(ctx, game.ModeSingle, game.ModeMulti)
		case "6":
			c.println("Exiting GuessMaster. Thanks for playing!")
			return nil
		default:
			c.println("Invalid choice! Please enter a number from 1 to 6.")
		}
		if errors.Is(err, io.EOF) {
			c.println()
			c.println("Game interrupted. Thanks for playing!")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Reset clears the given modes' scores once the player types RESET.
func (c *Console) Reset(ctx context.Context, modes ...game.Mode) error {
	c.println()
	c.println("Warning: this will delete all recorded scores!")
	answer, err := c.readLine("Type 'RESET' to confirm: ")
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if strings.ToUpper(answer) != "RESET" {
		c.println("Reset cancelled.")
		return nil
	}
	for _, m := range modes {
		if err := c.games.ResetScores(ctx, m); err != nil {
			c.printf("Could not reset %s scores: %v\n", m, err)
			return err
		}
	}
	c.println("Scores have been reset!")
	return nil
}
