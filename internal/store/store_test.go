package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioclas/internal/batch"
	"bioclas/internal/dataset"
	"bioclas/internal/fuzzy"
	"bioclas/internal/holdridge"
)

func sampleReport(id string, started time.Time) *batch.Report {
	floor := fuzzy.RGB{R: 9, G: 9, B: 9}
	return &batch.Report{
		RunID:      id,
		Mode:       fuzzy.Larsen,
		StartedAt:  started,
		FinishedAt: started.Add(250 * time.Millisecond),
		Total:      2,
		Classified: 1,
		Failed:     1,
		Latency:    batch.Latency{P50: 40 * time.Microsecond, P99: 120 * time.Microsecond},
		Results: []dataset.Result{
			{
				Point: dataset.Point{
					Row: 1, Longitude: -3.7, Latitude: 40.4,
					Indicators: holdridge.Indicators{ABT: 14.2, APP: 420, PER: 1.99},
				},
				Classification: &holdridge.Classification{Zones: []holdridge.Zone{
					{Name: "bosque seco templado calido", Degree: 0.7},
					{Name: "estepa templado frio", Degree: 0.3},
				}},
				Color: &fuzzy.RGB{R: 120, G: 130, B: 90},
			},
			{
				Point: dataset.Point{
					Row: 2, Longitude: 1, Latitude: math.NaN(),
					Indicators: holdridge.Indicators{ABT: math.NaN(), APP: 800, PER: math.NaN()},
				},
				Color: &floor,
				Err:   errors.New("missing input"),
			},
		},
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bioclas.db")
	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, path, st.Path())
	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"runs": 0, "classifications": 0}, stats)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	started := time.Unix(1700000000, 123456789)
	report := sampleReport("run-1", started)
	meta := RunMeta{VariablesPath: "v.json", RulesPath: "r.json", Input: "in.csv", Output: "out.csv"}
	require.NoError(t, st.SaveRun(ctx, report, meta))

	run, err := st.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, fuzzy.Larsen, run.Mode)
	assert.True(t, run.StartedAt.Equal(started))
	assert.Equal(t, 250*time.Millisecond, run.FinishedAt.Sub(run.StartedAt))
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 1, run.Classified)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 40*time.Microsecond, run.P50)
	assert.Equal(t, 120*time.Microsecond, run.P99)
	assert.Equal(t, meta, run.RunMeta)

	rows, err := st.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ok := rows[0]
	assert.Equal(t, 1, ok.Row)
	assert.Equal(t, 14.2, ok.ABT)
	assert.Equal(t, []string{"bosque seco templado calido", "estepa templado frio"}, ok.Zones)
	assert.Equal(t, &fuzzy.RGB{R: 120, G: 130, B: 90}, ok.Color)
	assert.Empty(t, ok.Error)

	bad := rows[1]
	assert.True(t, math.IsNaN(bad.ABT), "NULL reads back as NaN")
	assert.True(t, math.IsNaN(bad.Latitude))
	assert.Equal(t, 800.0, bad.APP)
	assert.Empty(t, bad.Zones)
	assert.Equal(t, &fuzzy.RGB{R: 9, G: 9, B: 9}, bad.Color)
	assert.Equal(t, "missing input", bad.Error)
}

func TestSaveRun_DuplicateIDRollsBack(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleReport("dup", time.Now()), RunMeta{}))
	assert.Error(t, st.SaveRun(ctx, sampleReport("dup", time.Now()), RunMeta{}))

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["runs"])
	assert.Equal(t, int64(2), stats["classifications"])
}

func TestRuns_NewestFirst(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.SaveRun(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour)), RunMeta{}))
	}

	all, err := st.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := st.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRunNotFound(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	_, err = st.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.Results(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, st.DeleteRun(ctx, "nope"), ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleReport("gone", time.Now()), RunMeta{}))
	require.NoError(t, st.DeleteRun(ctx, "gone"))

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats["runs"])
	assert.Zero(t, stats["classifications"])
}

func TestSaveRun_Nil(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	assert.Error(t, st.SaveRun(context.Background(), nil, RunMeta{}))
}
