package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"bioclas/internal/batch"
	"bioclas/internal/fuzzy"
	"bioclas/internal/logging"
)

// RunMeta records where a run's inputs came from.
type RunMeta struct {
	VariablesPath string
	RulesPath     string
	Input         string
	Output        string
}

// RunRecord is a stored run summary.
type RunRecord struct {
	ID         string
	Mode       fuzzy.Mode
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Classified int
	Failed     int
	P50, P99   time.Duration
	RunMeta
}

// ResultRecord is one stored classification. Unknown numbers are NaN;
// Color is nil when the row was not coloured.
type ResultRecord struct {
	Row       int
	Longitude float64
	Latitude  float64
	ABT       float64
	APP       float64
	PER       float64
	Zones     []string
	Color     *fuzzy.RGB
	Error     string
}

// SaveRun stores the report and all of its results in one transaction.
func (s *Store) SaveRun(ctx context.Context, report *batch.Report, meta RunMeta) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryStore, "SaveRun")
	defer timer.Stop()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, finished_at, total, classified, failed,
			p50_us, p99_us, variables_path, rules_path, input_path, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Mode.String(),
		report.StartedAt.UnixNano(), report.FinishedAt.UnixNano(),
		report.Total, report.Classified, report.Failed,
		report.Latency.P50.Microseconds(), report.Latency.P99.Microseconds(),
		meta.VariablesPath, meta.RulesPath, meta.Input, meta.Output,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classifications (run_id, row, longitude, latitude, abt, app, per,
			z1, z2, z3, r, g, b, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range report.Results {
		p := res.Point
		var zones [3]sql.NullString
		if res.Classification != nil {
			for i := range zones {
				if z := res.Classification.Zone(i); z != "" {
					zones[i] = sql.NullString{String: z, Valid: true}
				}
			}
		}
		var r, g, b sql.NullInt64
		if res.Color != nil {
			r = sql.NullInt64{Int64: int64(res.Color.R), Valid: true}
			g = sql.NullInt64{Int64: int64(res.Color.G), Valid: true}
			b = sql.NullInt64{Int64: int64(res.Color.B), Valid: true}
		}
		var errText sql.NullString
		if res.Err != nil {
			errText = sql.NullString{String: res.Err.Error(), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			report.RunID, p.Row,
			nullable(p.Longitude), nullable(p.Latitude),
			nullable(p.ABT), nullable(p.APP), nullable(p.PER),
			zones[0], zones[1], zones[2],
			r, g, b, errText,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", p.Row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", report.RunID, err)
	}
	logging.Store("Saved run %s (%d rows)", report.RunID, len(report.Results))
	return nil
}

const runColumns = `id, mode, started_at, finished_at, total, classified, failed,
	p50_us, p99_us, variables_path, rules_path, input_path, output_path`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var (
		rec               RunRecord
		mode              string
		started, finished int64
		p50, p99          sql.NullInt64
		vars, rules       sql.NullString
		input, output     sql.NullString
	)
	if err := sc.Scan(&rec.ID, &mode, &started, &finished,
		&rec.Total, &rec.Classified, &rec.Failed, &p50, &p99,
		&vars, &rules, &input, &output); err != nil {
		return nil, err
	}
	m, err := fuzzy.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", rec.ID, err)
	}
	rec.Mode = m
	rec.StartedAt = time.Unix(0, started)
	rec.FinishedAt = time.Unix(0, finished)
	rec.P50 = time.Duration(p50.Int64) * time.Microsecond
	rec.P99 = time.Duration(p99.Int64) * time.Microsecond
	rec.RunMeta = RunMeta{
		VariablesPath: vars.String,
		RulesPath:     rules.String,
		Input:         input.String,
		Output:        output.String,
	}
	return &rec, nil
}

// Run returns the summary of one run.
func (s *Store) Run(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return rec, nil
}

// Runs lists the most recent runs first. limit <= 0 means no limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Results returns the stored classifications of a run ordered by row.
func (s *Store) Results(ctx context.Context, id string) ([]ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT row, longitude, latitude, abt, app, per, z1, z2, z3, r, g, b, error
		FROM classifications WHERE run_id = ? ORDER BY row`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results of %s: %w", id, err)
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var (
			rec                 ResultRecord
			lon, lat            sql.NullFloat64
			abt, app, per       sql.NullFloat64
			z1, z2, z3, errText sql.NullString
			r, g, b             sql.NullInt64
		)
		if err := rows.Scan(&rec.Row, &lon, &lat, &abt, &app, &per,
			&z1, &z2, &z3, &r, &g, &b, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Longitude, rec.Latitude = orNaN(lon), orNaN(lat)
		rec.ABT, rec.APP, rec.PER = orNaN(abt), orNaN(app), orNaN(per)
		for _, z := range []sql.NullString{z1, z2, z3} {
			if z.Valid {
				rec.Zones = append(rec.Zones, z.String)
			}
		}
		if r.Valid && g.Valid && b.Valid {
			rec.Color = &fuzzy.RGB{R: uint8(r.Int64), G: uint8(g.Int64), B: uint8(b.Int64)}
		}
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its classifications.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// foreign_keys is per connection; do not rely on the cascade
	if _, err := tx.ExecContext(ctx, `DELETE FROM classifications WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete results of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of %s: %w", id, err)
	}
	logging.StoreDebug("Deleted run %s", id)
	return nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
