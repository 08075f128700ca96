package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rentwerk/mietflow/internal/cli"
	"github.com/rentwerk/mietflow/internal/config"
	"github.com/rentwerk/mietflow/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past reconciliation runs",
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	appCfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	store, err := storage.NewStore(appCfg.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No runs recorded yet."))
		return nil
	}

	fmt.Println(cli.FormatTitle("Reconciliation History"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATEMENT\tPOSTED\tDUPLICATES\tTOTAL (EUR)\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.StatementFile,
			r.Posted,
			r.Duplicates,
			r.PostedTotal,
			r.OutputFile)
	}
	return w.Flush()
}
