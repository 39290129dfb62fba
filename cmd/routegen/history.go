package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/routegen/bootstrap"
	"github.com/artpar/routegen/core/formatter"
	"github.com/artpar/routegen/ports"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent calls",
	Long: `Show the most recent calls recorded in the call journal.

Only the sqlite journal outlives a process; the memory journal is empty
for a fresh CLI invocation.

Examples:
  routegen history
  routegen history -n 50 -o json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of calls to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	f, err := formatter.Get(outputFormat)
	if err != nil {
		return err
	}

	a, err := bootstrap.New(cfgFile)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if a.Journal == nil {
		return errors.New("call journal is disabled (journal.driver: none)")
	}

	records, err := a.Journal.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	return f.FormatList(cmd.OutOrStdout(), callListing(records), formatter.FormatOptions{})
}

func callListing(records []ports.CallRecord) formatter.Listing {
	l := formatter.Listing{
		Kind:    "calls",
		Columns: []string{"time", "endpoint", "method", "status", "outcome", "duration", "url"},
	}
	for _, r := range records {
		l.Records = append(l.Records, map[string]any{
			"id":       r.ID,
			"time":     r.CreatedAt,
			"endpoint": r.Namespace + "." + r.Function,
			"method":   r.Method,
			"status":   r.Status,
			"outcome":  string(r.Outcome),
			"duration": r.Duration,
			"url":      r.URL,
			"error":    r.Error,
		})
	}
	return l
}
