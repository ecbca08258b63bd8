// Package batch classifies many points concurrently.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bioclas/internal/dataset"
	"bioclas/internal/fuzzy"
	"bioclas/internal/holdridge"
	"bioclas/internal/logging"
	"bioclas/internal/metrics"
)

// Options control error handling and fan-out.
type Options struct {
	Parallelism int
	// FailFast aborts the run on the first row error. Otherwise failed rows
	// keep their error and the run continues.
	FailFast bool
	// FloorColor, when set, colours rows that failed to classify.
	FloorColor *fuzzy.RGB
}

// Latency summarises per-point evaluation time.
type Latency struct {
	P50, P90, P99, Max time.Duration
}

func (l Latency) String() string {
	return fmt.Sprintf("p50=%v p90=%v p99=%v max=%v", l.P50, l.P90, l.P99, l.Max)
}

// Report describes one run. Results are in input order.
type Report struct {
	RunID      string
	Mode       fuzzy.Mode
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Classified int
	Failed     int
	Latency    Latency
	Results    []dataset.Result
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Runner evaluates points with a shared classifier.
type Runner struct {
	classifier *holdridge.Classifier
	opts       Options
	recorder   *metrics.Recorder
}

// NewRunner validates opts. recorder may be nil.
func NewRunner(c *holdridge.Classifier, opts Options, recorder *metrics.Recorder) (*Runner, error) {
	if c == nil {
		return nil, fmt.Errorf("batch: nil classifier")
	}
	if opts.Parallelism < 1 {
		return nil, fmt.Errorf("batch: parallelism must be >= 1, got %d", opts.Parallelism)
	}
	return &Runner{classifier: c, opts: opts, recorder: recorder}, nil
}

// Run classifies every point. With FailFast the first row error cancels the
// remaining work and is returned together with the partial report.
func (r *Runner) Run(ctx context.Context, points []dataset.Point) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Mode:      r.classifier.Mode(),
		StartedAt: time.Now(),
		Total:     len(points),
		Results:   make([]dataset.Result, len(points)),
	}
	log := logging.WithRun(logging.CategoryBatch, report.RunID)
	log.Info("classifying %d points (mode=%s, parallelism=%d, fail_fast=%v)",
		len(points), report.Mode, r.opts.Parallelism, r.opts.FailFast)

	elapsed := make([]time.Duration, len(points))
	done := make([]bool, len(points))
	mode := report.Mode.String()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.Parallelism)

	for i := range points {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			p := points[i]
			start := time.Now()
			cls, err := r.classifier.Classify(p.Indicators)
			elapsed[i] = time.Since(start)
			done[i] = true
			r.recorder.ObservePoint(mode, elapsed[i], err)

			res := dataset.Result{Point: p, Classification: cls, Err: err}
			if err == nil {
				color := cls.Color
				res.Color = &color
			} else {
				log.Debug("row %d: %v", p.Row, err)
				if r.opts.FailFast {
					report.Results[i] = res
					return fmt.Errorf("row %d: %w", p.Row, err)
				}
				res.Color = r.opts.FloorColor
			}
			report.Results[i] = res
			return nil
		})
	}
	runErr := eg.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	report.FinishedAt = time.Now()
	hist := hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)
	for i, ok := range done {
		if !ok {
			continue
		}
		if report.Results[i].Err != nil {
			report.Failed++
		} else {
			report.Classified++
		}
		_ = hist.RecordValue(max(elapsed[i].Microseconds(), 1))
	}
	if hist.TotalCount() > 0 {
		report.Latency = Latency{
			P50: time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
			P90: time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
			P99: time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
			Max: time.Duration(hist.Max()) * time.Microsecond,
		}
	}
	r.recorder.RunFinished(report.FinishedAt, report.Total)

	if runErr != nil {
		log.Warn("run aborted after %d of %d points: %v", report.Classified+report.Failed, report.Total, runErr)
		return report, runErr
	}
	log.Info("classified %d/%d points in %v (%d failed, %s)",
		report.Classified, report.Total, report.Duration(), report.Failed, report.Latency)
	return report, nil
}
