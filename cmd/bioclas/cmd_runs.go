package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bioclas/internal/store"
)

var (
	runsDB    string
	runsLimit int
)

// runsCmd inspects stored batch runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect runs stored by zonify --db",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the classifications of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsDB, "db", "", "SQLite database (default: store.database_path)")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum runs to list (0 = all)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

func openRunStore() (*store.Store, error) {
	return store.Open(firstNonEmpty(runsDB, cfg.Store.DatabasePath))
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs(ctx, runsLimit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no runs stored in "+st.Path()))
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-7s %5d/%-5d failed=%-4d %8v  %s\n",
			headingStyle.Render(r.ID), r.StartedAt.Format(time.RFC3339), r.Mode,
			r.Classified, r.Total, r.Failed,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Input)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Run(ctx, args[0])
	if err != nil {
		return err
	}
	rows, err := st.Results(ctx, args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s mode=%s input=%s p50=%v p99=%v\n",
		headingStyle.Render("run"), run.ID, run.Mode, run.Input, run.P50, run.P99)
	for _, r := range rows {
		line := fmt.Sprintf("%5d  ABT=%-7.2f APP=%-8.1f PER=%-7.3f", r.Row, r.ABT, r.APP, r.PER)
		if r.Color != nil {
			line += "  " + swatch(*r.Color)
		}
		if len(r.Zones) > 0 {
			line += "  " + strings.Join(r.Zones, " | ")
		}
		if r.Error != "" {
			line += "  " + errorStyle.Render(r.Error)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteRun(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
	return nil
}
