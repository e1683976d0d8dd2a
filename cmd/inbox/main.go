package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/adapter/inbox"
	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/dayanaadylkhanova/powgate/pkg/config"
	"github.com/spf13/cobra"
)

var (
	dsn     string
	limit   int
	asJSON  bool
	timeout time.Duration
)

var errNoDSN = errors.New("no inbox database: set INBOX_DSN or pass --dsn")

var rootCmd = &cobra.Command{
	Use:           "powgate-inbox",
	Short:         "Read contact submissions stored by the server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// listCmd prints the newest submissions from the SQLite inbox
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored submissions, newest first",
	RunE:  runList,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dsn, "dsn", "", "inbox DSN (defaults to INBOX_DSN from the server config)")
	pf.DurationVar(&timeout, "timeout", 10*time.Second, "query deadline")

	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "max rows (0 = all)")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "one JSON object per line")

	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resolveDSN() (string, error) {
	if dsn != "" {
		return dsn, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	// the memory inbox lives inside the server process
	if cfg.InboxDSN == "" {
		return "", errNoDSN
	}
	return cfg.InboxDSN, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	d, err := resolveDSN()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := inbox.Open(ctx, d)
	if err != nil {
		return err
	}
	defer store.Close()

	subs, err := store.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), subs)
	}
	return writeTable(cmd.OutOrStdout(), subs)
}

func writeJSON(w io.Writer, subs []entity.Submission) error {
	enc := json.NewEncoder(w)
	for _, s := range subs {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, subs []entity.Submission) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tID\tNAME\tEMAIL\tMESSAGE")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.CreatedAt.Format(time.RFC3339), s.ID, s.Name, s.Email, preview(s.Message, 60))
	}
	return tw.Flush()
}

func preview(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
