package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bioclas/internal/batch"
	"bioclas/internal/dataset"
	"bioclas/internal/holdridge"
	"bioclas/internal/logging"
	"bioclas/internal/metrics"
	"bioclas/internal/store"
)

var (
	zonifyOutput      string
	zonifyDB          string
	zonifyTextfile    string
	zonifyParallelism int
	zonifyFailFast    bool
)

// zonifyCmd classifies every row of a CSV table
var zonifyCmd = &cobra.Command{
	Use:   "zonify <input.csv>",
	Short: "Classify every point of a CSV table",
	Long: `Reads a CSV table with ABT and APP columns (PER optional, derived when
absent), classifies each row and writes the table back with the columns
Z1, Z2, Z3 (strongest zones), r, g, b (blended colour) and error.

Examples:
  bioclas zonify stations.csv -o stations_zones.csv
  bioclas zonify stations.csv --mode larsen --db data/bioclas.db`,
	Args: cobra.ExactArgs(1),
	RunE: runZonify,
}

func init() {
	zonifyCmd.Flags().StringVarP(&zonifyOutput, "output", "o", "", "Output CSV (default: stdout)")
	zonifyCmd.Flags().StringVar(&zonifyDB, "db", "", "Store the run in this SQLite database (overrides store config)")
	zonifyCmd.Flags().StringVar(&zonifyTextfile, "metrics-textfile", "", "Write Prometheus metrics to this textfile (overrides metrics config)")
	zonifyCmd.Flags().IntVarP(&zonifyParallelism, "parallelism", "p", 0, "Concurrent evaluations (default: batch.parallelism)")
	zonifyCmd.Flags().BoolVar(&zonifyFailFast, "fail-fast", false, "Abort on the first row that cannot be classified")
}

func runZonify(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	c, err := loadClassifier()
	if err != nil {
		return err
	}
	opts, err := batchOptions()
	if err != nil {
		return err
	}

	textfile := firstNonEmpty(zonifyTextfile, cfg.Metrics.TextfilePath)
	var recorder *metrics.Recorder
	if textfile != "" {
		recorder = metrics.NewRecorder()
	}

	report, err := classifyFile(ctx, c, args[0], zonifyOutput, opts, recorder, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s: classified %d/%d points (%d failed) in %v\n",
		report.RunID, report.Classified, report.Total, report.Failed, report.Duration().Round(time.Millisecond))

	if dbPath := storePath(); dbPath != "" {
		if err := saveRun(ctx, dbPath, report, store.RunMeta{
			VariablesPath: cfg.Knowledge.VariablesPath,
			RulesPath:     cfg.Knowledge.RulesPath,
			Input:         args[0],
			Output:        zonifyOutput,
		}); err != nil {
			return err
		}
	}
	if textfile != "" {
		if err := recorder.WriteTextfile(textfile); err != nil {
			return err
		}
		logging.Metrics("metrics written to %s", textfile)
	}
	return nil
}

func batchOptions() (batch.Options, error) {
	floor, err := cfg.FloorColor()
	if err != nil {
		return batch.Options{}, err
	}
	opts := batch.Options{
		Parallelism: cfg.Batch.Parallelism,
		FailFast:    cfg.Batch.FailFast || zonifyFailFast,
		FloorColor:  floor,
	}
	if zonifyParallelism > 0 {
		opts.Parallelism = zonifyParallelism
	}
	return opts, nil
}

// classifyFile reads input, runs the batch and writes the result table to
// output, or to stdout when output is empty.
func classifyFile(ctx context.Context, c *holdridge.Classifier, input, output string, opts batch.Options, recorder *metrics.Recorder, stdout io.Writer) (*batch.Report, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	ds, err := dataset.ReadPoints(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	runner, err := batch.NewRunner(c, opts, recorder)
	if err != nil {
		return nil, err
	}
	report, err := runner.Run(ctx, ds.Points)
	if err != nil {
		return report, err
	}

	if output == "" {
		return report, dataset.WriteResults(stdout, ds.Header, ds.Delimiter, report.Results)
	}
	if err := writeResultsFile(output, ds, report.Results); err != nil {
		return report, err
	}
	return report, nil
}

// writeResultsFile writes through a temporary file so readers never see a
// partial table.
func writeResultsFile(path string, ds *dataset.Dataset, results []dataset.Result) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bioclas-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := dataset.WriteResults(tmp, ds.Header, ds.Delimiter, results); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func storePath() string {
	if zonifyDB != "" {
		return zonifyDB
	}
	if cfg.Store.Enabled {
		return cfg.Store.DatabasePath
	}
	return ""
}

func saveRun(ctx context.Context, path string, report *batch.Report, meta store.RunMeta) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, report, meta)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
