package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/trailgo/internal/server"
)

var fetchAttempts int

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Run a one-shot trailer acquisition for one item",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetchCmd,
}

func init() {
	fetchCmd.Flags().IntVar(&fetchAttempts, "attempts", 0, "Max attempts (default: configured value)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := os.MkdirAll(cfg.Scratch.Dir, 0755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := server.NewRunner(db, cfg, logger)
	defer runner.Close()

	out, err := runner.AcquireOne(ctx, id, fetchAttempts)
	if err != nil {
		return fmt.Errorf("acquisition failed after %d attempt(s): %w", out.Attempts, err)
	}

	if jsonOutput {
		printJSON(out)
		return nil
	}
	fmt.Printf("Trailer placed: %s (candidate %s, %d attempt(s))\n", out.FinalPath, out.CandidateID, out.Attempts)
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
