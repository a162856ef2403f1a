package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/robalobadob/guessmaster/internal/console"
	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/httpserver"
)

// modeArg parses an optional [single|multi] argument; "" means both/menu.
func modeArg(args []string) (game.Mode, error) {
	if len(args) == 0 {
		return "", nil
	}
	return game.ParseMode(strings.ToLower(args[0]))
}

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "play [single|multi]",
		Short:     "Play in the terminal",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(game.ModeSingle), string(game.ModeMulti)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeArg(args)
			if err != nil {
				return err
			}
			return runConsole(cmd, mode)
		},
	}
}

func runConsole(cmd *cobra.Command, mode game.Mode) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	c := console.New(a.games, os.Stdin, cmd.OutOrStdout())
	switch mode {
	case game.ModeSingle:
		err = c.PlaySingle(ctx)
	case game.ModeMulti:
		err = c.PlayMulti(ctx)
	default:
		return c.Run(ctx)
	}
	return ignoreEOF(err)
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func newScoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scores [single|multi]",
		Short: "Show recorded scores",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeArg(args)
			if err != nil {
				return err
			}
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			c := console.New(a.games, os.Stdin, cmd.OutOrStdout())
			if mode == "" || mode == game.ModeSingle {
				c.ShowScores(cmd.Context(), game.ModeSingle)
			}
			if mode == "" || mode == game.ModeMulti {
				c.ShowScores(cmd.Context(), game.ModeMulti)
			}
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [single|multi]",
		Short: "Delete recorded scores (asks for confirmation)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeArg(args)
			if err != nil {
				return err
			}
			modes := []game.Mode{game.ModeSingle, game.ModeMulti}
			if mode != "" {
				modes = []game.Mode{mode}
			}
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			defer a.Close()
			c := console.New(a.games, os.Stdin, cmd.OutOrStdout())
			return c.Reset(cmd.Context(), modes...)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := httpserver.New(a.games, httpserver.Options{
				Addr:              ":" + a.cfg.Port,
				SessionSecret:     a.cfg.SessionSecret,
				SecureCookies:     a.cfg.IsProduction(),
				SessionTTL:        a.cfg.SessionTimeout,
				AdminPasswordHash: a.cfg.AdminPasswordHash,
				ClientOrigin:      a.cfg.ClientOrigin,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("port", a.cfg.Port).Str("ledger", a.cfg.LedgerBackend).Msg("starting guessmaster")
				return srv.Run()
			})
			g.Go(func() error {
				return a.games.RunSweeper(gctx, a.cfg.SweepInterval)
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Msg("shutting down")
				return srv.Shutdown(context.Background())
			})
			if err := g.Wait(); err != nil {
				log.Error().Err(err).Msg("server exited")
				return err
			}
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if pw == "" {
				return fmt.Errorf("password cannot be empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
