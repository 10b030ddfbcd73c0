package cmd

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"odkdl/internal/history"
	"odkdl/internal/ui"
)

var (
	flagHistoryClear  bool
	flagHistorySelect bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, clear or re-resolve previously resolved videos",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Delete all history entries")
	historyCmd.Flags().BoolVarP(&flagHistorySelect, "select", "s", false, "Pick an entry with fzf and resolve it again")
}

func historyRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := history.OpenDefault(ctx)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if flagHistoryClear {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	}

	entries, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history entries found.")
		return nil
	}

	items := history.FormatForDisplay(entries)
	if !flagHistorySelect {
		for _, item := range items {
			fmt.Fprintln(cmd.OutOrStdout(), item)
		}
		return nil
	}

	idx, err := ui.Select("History", items)
	if err != nil {
		if errors.Is(err, ui.ErrCancelled) {
			return nil
		}
		return err
	}

	selected := entries[idx]
	log.WithFields(log.Fields{"id": selected.ID, "url": selected.URL}).Debug("Re-resolving history entry")
	return resolveURL(cmd, selected.URL)
}
