package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/robalobadob/guessmaster/internal/config"
	"github.com/robalobadob/guessmaster/internal/ledger"
	"github.com/robalobadob/guessmaster/internal/manager"
	"github.com/robalobadob/guessmaster/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guessmaster",
		Short:         "Guess the secret number, alone or against a friend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPlayCmd(),
		newScoresCmd(),
		newResetCmd(),
		newServeCmd(),
		newHashPasswordCmd(),
	)
	// Bare "guessmaster" opens the interactive menu.
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd, "")
	}
	return root
}

// setupLogging applies LOG_LEVEL; interactive commands log human-readable
// lines to stderr so they don't mix with the game on stdout. With LOG_FILE
// set, every line is also appended to a rotated JSON file.
func setupLogging(cfg *config.Config, interactive bool) io.Closer {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if interactive {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	if cfg.LogFile == "" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(out, file)).With().Timestamp().Logger()
	return file
}

// openLedger picks the score backend from configuration.
func openLedger(cfg *config.Config) (ledger.Ledger, error) {
	if cfg.LedgerBackend == config.BackendSQLite {
		return ledger.OpenSQLite(cfg.DBPath)
	}
	return ledger.OpenFile(cfg.DataDir)
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	ledger ledger.Ledger
	games  *manager.Manager
	logs   io.Closer
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		log.Warn().Err(err).Msg("close ledger")
	}
	_ = a.logs.Close()
}

func loadApp(interactive bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logs := setupLogging(cfg, interactive)

	lg, err := openLedger(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	log.Debug().Str("backend", cfg.LedgerBackend).Msg("ledger opened")

	games := manager.New(store.NewMemoryStore(), lg, manager.OptionsFromConfig(cfg))
	return &app{cfg: cfg, ledger: lg, games: games, logs: logs}, nil
}
