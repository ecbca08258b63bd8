package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bioclas/internal/batch"
	"bioclas/internal/kb"
	"bioclas/internal/logging"
)

var watchOutput string

// watchCmd keeps an output table in sync with the definition files
var watchCmd = &cobra.Command{
	Use:   "watch <input.csv>",
	Short: "Reclassify a table whenever the definition files change",
	Long: `Classifies input once, then watches the variable and rule files and
rewrites the output each time they change. A definition that fails to
load is reported and the previous knowledge base stays in use.

Runs until interrupted.

Example:
  bioclas watch stations.csv -o stations_zones.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output CSV (required)")
	watchCmd.MarkFlagRequired("output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	k, err := loadKnowledge()
	if err != nil {
		return err
	}
	opts, err := batchOptions()
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()

	reclassify := func(k *kb.KnowledgeBase) {
		if err := classifyWith(ctx, k, args[0], opts, stderr); err != nil {
			fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		}
	}
	reclassify(k)

	w, err := kb.NewWatcher(k, func(next *kb.KnowledgeBase, err error) {
		if err != nil {
			fmt.Fprintln(stderr, errorStyle.Render("reload failed, keeping previous definitions: "+err.Error()))
			return
		}
		reclassify(next)
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()
	logging.Watch("watching %v", w.WatchedDirs())
	fmt.Fprintln(stderr, mutedStyle.Render("watching definitions; Ctrl-C to stop"))

	<-ctx.Done()
	stats := w.Stats()
	logging.Watch("watch stopped: %d events, %d reloads, %d failed", stats.Events, stats.Reloads, stats.FailedReloads)
	return nil
}

func classifyWith(ctx context.Context, k *kb.KnowledgeBase, input string, opts batch.Options, stderr io.Writer) error {
	c, err := newClassifier(k)
	if err != nil {
		return err
	}
	report, err := classifyFile(ctx, c, input, watchOutput, opts, nil, io.Discard)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "run %s: %d/%d classified, %d failed -> %s\n",
		report.RunID, report.Classified, report.Total, report.Failed, watchOutput)
	return nil
}
