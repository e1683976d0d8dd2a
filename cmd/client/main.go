package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/adapter/transport/rest"
	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/dayanaadylkhanova/powgate/internal/service"
	"github.com/dayanaadylkhanova/powgate/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
	workers   int
	logLevel  string

	contactName    string
	contactEmail   string
	contactMessage string
)

var errRejected = errors.New("rejected by server")

var rootCmd = &cobra.Command{
	Use:           "powgate-client",
	Short:         "Fetch, solve and submit proof-of-work challenges",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// verifyCmd solves one challenge and asks the server to check it
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Solve a challenge and verify the solution",
	RunE:  runVerify,
}

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Solve a challenge and post the contact form with it",
	RunE:  runContact,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverURL, "server", envOr("SERVER_URL", "http://localhost:8080"), "server base URL")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	pf.IntVar(&workers, "workers", 0, "solver goroutines (0 = GOMAXPROCS)")
	pf.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug|info|warn|error")

	contactCmd.Flags().StringVar(&contactName, "name", "", "sender name")
	contactCmd.Flags().StringVar(&contactEmail, "email", "", "sender email")
	contactCmd.Flags().StringVarP(&contactMessage, "message", "m", "", "message text")
	_ = contactCmd.MarkFlagRequired("name")
	_ = contactCmd.MarkFlagRequired("email")
	_ = contactCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(verifyCmd, contactCmd)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLog() *slog.Logger {
	return logger.NewText(os.Stderr, logger.LevelFromEnv(logLevel))
}

// solve fetches a challenge and finds its number.
func solve(ctx context.Context, log *slog.Logger, c *rest.Client) (entity.Solution, error) {
	ch, err := c.Challenge(ctx)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("fetch challenge: %w", err)
	}
	log.Debug("challenge received", "algorithm", ch.Algorithm, "max_number", ch.MaxNumber)

	start := time.Now()
	n, err := service.Solve(ctx, ch, workers)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("solve: %w", err)
	}
	log.Info("challenge solved", "number", n, "took", time.Since(start).String())
	return entity.SolutionFor(ch, n), nil
}

// submitErr turns a 403 into advice; the server never says which check failed.
func submitErr(op string, err error) error {
	if rest.IsRejected(err) {
		return fmt.Errorf("%s: %w: solution rejected, fetch a new challenge and retry", op, errRejected)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	log := newLog()
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := rest.NewClient(serverURL, &http.Client{Timeout: timeout})
	sol, err := solve(ctx, log, c)
	if err != nil {
		return err
	}
	if err := c.Verify(ctx, sol); err != nil {
		return submitErr("verify", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "verified")
	return nil
}

func runContact(cmd *cobra.Command, _ []string) error {
	log := newLog()
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := rest.NewClient(serverURL, &http.Client{Timeout: timeout})
	sol, err := solve(ctx, log, c)
	if err != nil {
		return err
	}
	id, err := c.Contact(ctx, sol, contactName, contactEmail, contactMessage)
	if err != nil {
		return submitErr("contact", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
