package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rentwerk/mietflow/internal/cli"
	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/config"
	"github.com/rentwerk/mietflow/internal/engine"
	"github.com/rentwerk/mietflow/internal/storage"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Post statement payments into the tenant ledger",
		Long: `Reads a bank statement, matches its payments to the tenants of the
ledger workbook, and writes the updated ledger plus an audit sheet to the
output file. Runs are idempotent: payments already posted are skipped.`,
		RunE: runReconcile,
	}

	cmd.Flags().String("ledger", "", "tenant ledger workbook (.xlsx)")
	cmd.Flags().String("statement", "", "bank statement file (.xlsx, .csv or .ofx)")
	cmd.Flags().StringP("output", "o", "mieten_abgleich.xlsx", "output workbook")
	cmd.Flags().Bool("no-history", false, "skip recording the run in the history database")
	_ = cmd.MarkFlagRequired("ledger")
	_ = cmd.MarkFlagRequired("statement")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	statementPath, _ := cmd.Flags().GetString("statement")
	outputPath, _ := cmd.Flags().GetString("output")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	appCfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	eng := engine.New(appCfg.Engine, slog.Default())
	var bar *progressbar.ProgressBar
	eng.Progress = func(done, total int) {
		if bar == nil {
			bar = cli.NewProgressBar(total, os.Stderr, "Reconciling tenants...")
		}
		_ = bar.Set(done)
	}

	summary, err := eng.Reconcile(cmd.Context(), ledgerPath, statementPath, outputPath)
	if err != nil {
		var uerr *common.UserError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, cli.FormatError(uerr.UserMessage))
		}
		return err
	}

	fmt.Println(cli.RenderBox("Reconciliation Complete", formatSummary(summary)))

	if !noHistory {
		if err := recordRun(cmd, appCfg.HistoryDB, ledgerPath, statementPath, summary); err != nil {
			// History is a convenience; the artifact is already written.
			slog.Warn("Failed to record run history", "error", err)
		}
	}
	return nil
}

func formatSummary(s *engine.Summary) string {
	out := fmt.Sprintf("  • Transactions read: %d\n", s.Transactions) +
		fmt.Sprintf("  • Postable: %d\n", s.Postable) +
		fmt.Sprintf("  • Tenants matched: %d\n", s.TenantsMatched) +
		fmt.Sprintf("  • Posted: %d\n", s.Posted) +
		fmt.Sprintf("  • Duplicates skipped: %d\n", s.Duplicates)
	if n := s.SkippedNoAmount + s.SkippedNoMonth; n > 0 {
		out += fmt.Sprintf("  • Unassignable: %d\n", n)
	}
	out += fmt.Sprintf("  • Total posted: %s EUR\n", s.PostedTotal.StringFixed(2)) +
		fmt.Sprintf("  • Output: %s", s.OutputPath)
	return out
}

func recordRun(cmd *cobra.Command, dbPath, ledgerPath, statementPath string, s *engine.Summary) error {
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.RecordRun(cmd.Context(), &storage.RunRecord{
		StartedAt:     s.StartedAt,
		LedgerFile:    ledgerPath,
		StatementFile: statementPath,
		OutputFile:    s.OutputPath,
		Transactions:  s.Transactions,
		Postable:      s.Postable,
		Posted:        s.Posted,
		Duplicates:    s.Duplicates,
		PostedTotal:   s.PostedTotal.StringFixed(2),
	})
}
