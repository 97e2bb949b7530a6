package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deusflow/devbot/internal/config"
	"github.com/deusflow/devbot/internal/ledger"
	"github.com/deusflow/devbot/internal/logger"
)

var listLimit int

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the history of produced topics",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the most recent topics, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, done, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer done()

		topics := l.Topics()
		start := 0
		if listLimit > 0 && len(topics) > listLimit {
			start = len(topics) - listLimit
		}
		out := cmd.OutOrStdout()
		for i := start; i < len(topics); i++ {
			fmt.Fprintf(out, "%4d  %s\n", i+1, topics[i])
		}
		fmt.Fprintf(out, "%d of %d topics\n", len(topics)-start, len(topics))
		return nil
	},
}

var ledgerCheckCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Tell whether a text would be rejected as a repeat",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, done, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer done()

		text := strings.Join(args, " ")
		closest, score := l.Closest(text)
		out := cmd.OutOrStdout()
		if l.IsDuplicate(text) {
			fmt.Fprintf(out, "duplicate (%.2f > %.2f) of: %s\n", score, ledger.DuplicateThreshold, closest)
			return nil
		}
		if closest == "" {
			fmt.Fprintln(out, "new: nothing similar recorded")
			return nil
		}
		fmt.Fprintf(out, "new (closest %.2f): %s\n", score, closest)
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "How many recent topics to print (0 = all)")
	ledgerCmd.AddCommand(ledgerListCmd, ledgerCheckCmd)
}

func openLedger(cmd *cobra.Command) (*ledger.Ledger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.Debug)

	store, done, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return ledger.New(cmd.Context(), store, cfg.LedgerMaxTopics, logger.For("ledger")), done, nil
}
