package holdridge

import (
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioclas/internal/fuzzy"
	"bioclas/internal/kb"
)

var nan = math.NaN()

func loadZonify(t *testing.T) *kb.KnowledgeBase {
	t.Helper()
	k, err := kb.Load(
		filepath.Join("..", "..", "configs", "variables.json"),
		filepath.Join("..", "..", "configs", "FIS-Zonify.json"),
	)
	require.NoError(t, err)
	return k
}

// =============================================================================
// INDICATORS
// =============================================================================

func TestBiotemperature(t *testing.T) {
	tests := []struct {
		name   string
		months [12]float64
		want   float64
	}{
		{"constant", [12]float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, 10},
		{"freezing months count as zero", [12]float64{-5, -5, -5, -5, -5, -5, 12, 12, 12, 12, 12, 12}, 6},
		{"hot months capped at 30", [12]float64{36, 36, 36, 36, 36, 36, 24, 24, 24, 24, 24, 24}, 27},
		{"floor", [12]float64{-10, -10, -10, -10, -10, -10, -10, -10, -10, -10, -10, -10}, 0.375},
		{"interior gap", [12]float64{0, nan, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12}, (0 + 6 + 12*10) / 12.0},
		{"wrapping gap", [12]float64{nan, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, nan}, 12},
		{"three gaps in a row", [12]float64{0, nan, nan, nan, 8, 8, 8, 8, 8, 8, 8, 8}, (0 + 2 + 4 + 6 + 8*8) / 12.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Biotemperature(tt.months)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := Biotemperature([12]float64{nan, nan, nan, nan, 1, 1, 1, 1, 1, 1, 1, 1})
	assert.ErrorIs(t, err, ErrTooManyGaps)

	for _, inf := range []float64{math.Inf(1), math.Inf(-1)} {
		got, err := Biotemperature([12]float64{inf, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
		assert.ErrorIs(t, err, ErrNotFinite, "month = %v", inf)
		assert.True(t, math.IsNaN(got), "month = %v", inf)
	}
}

func TestAnnualPrecipitation(t *testing.T) {
	got, err := AnnualPrecipitation([12]float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100})
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, got, 1e-9)

	got, err = AnnualPrecipitation([12]float64{nan, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20})
	require.NoError(t, err)
	assert.InDelta(t, 240.0, got, 1e-9)

	got, err = AnnualPrecipitation([12]float64{})
	require.NoError(t, err)
	assert.Equal(t, APPRange.Lo, got, "clipped to the driest Holdridge province")

	got, err = AnnualPrecipitation([12]float64{2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000, 2000})
	require.NoError(t, err)
	assert.Equal(t, APPRange.Hi, got)

	_, err = AnnualPrecipitation([12]float64{nan, nan, nan, nan, nan, 1, 1, 1, 1, 1, 1, 1})
	assert.ErrorIs(t, err, ErrTooManyGaps)

	_, err = AnnualPrecipitation([12]float64{-1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	assert.Error(t, err)
}

func TestPotentialEvapotranspirationRatio(t *testing.T) {
	per, err := PotentialEvapotranspirationRatio(12, 58.93*12)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, per, 1e-12)

	// APP below range is lifted to 62.5 before dividing.
	per, err = PotentialEvapotranspirationRatio(10, 10)
	require.NoError(t, err)
	assert.InDelta(t, 10*PETFactor/62.5, per, 1e-12)

	per, err = PotentialEvapotranspirationRatio(40, 62.5)
	require.NoError(t, err)
	assert.Equal(t, PERRange.Hi, per)

	per, err = PotentialEvapotranspirationRatio(0.375, 16000)
	require.NoError(t, err)
	assert.Equal(t, PERRange.Lo, per)

	_, err = PotentialEvapotranspirationRatio(nan, 100)
	assert.ErrorIs(t, err, ErrNotFinite)
	_, err = PotentialEvapotranspirationRatio(10, math.Inf(1))
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestIndicators_Complete(t *testing.T) {
	in, err := Indicators{ABT: 24, APP: 58.93 * 6, PER: nan}.Complete()
	require.NoError(t, err)
	assert.InDelta(t, 4.0, in.PER, 1e-12)

	given := Indicators{ABT: 24, APP: 1000, PER: 0.5}
	out, err := given.Complete()
	require.NoError(t, err)
	assert.Equal(t, given, out)

	_, err = Indicators{ABT: nan, APP: 1000, PER: nan}.Complete()
	assert.ErrorIs(t, err, ErrNotFinite)

	assert.Equal(t, "ABT=24.00 APP=1000.0 PER=0.500", given.String())
}

// =============================================================================
// CLASSIFIER
// =============================================================================

func TestClassifier_Inputs(t *testing.T) {
	c, err := NewClassifier(loadZonify(t), fuzzy.Mamdani)
	require.NoError(t, err)

	inputs, err := c.Inputs(Indicators{ABT: 12, APP: 1000, PER: 1})
	require.NoError(t, err)
	want := map[string]float64{"ABT": 4, "PER": -1}
	if diff := cmp.Diff(want, inputs, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}

	// Out-of-range indicators are clipped to the Holdridge limits.
	inputs, err = c.Inputs(Indicators{ABT: 0.01, APP: 1000, PER: 500})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, inputs["ABT"], 1e-12)
	assert.InDelta(t, 4.0, inputs["PER"], 1e-12)

	// ABT 30 maps just under the domain's upper bound; the domain clamp keeps it in.
	inputs, err = c.Inputs(Indicators{ABT: 45, APP: 1000, PER: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, inputs["ABT"], 5.33)
	assert.InDelta(t, math.Log2(40), inputs["ABT"], 1e-12)

	_, err = c.Inputs(Indicators{ABT: nan, APP: 1000, PER: 1})
	assert.ErrorIs(t, err, fuzzy.ErrMissingInput)

	_, err = c.Inputs(Indicators{ABT: nan, APP: 1000, PER: nan})
	assert.ErrorIs(t, err, fuzzy.ErrMissingInput)
}

func TestClassifier_Classify(t *testing.T) {
	c, err := NewClassifier(loadZonify(t), fuzzy.Mamdani)
	require.NoError(t, err)

	// ABT 12 lies two thirds of the way from the 6-12 peak to the 12-18 peak;
	// PER 1 is the boundary between humid and subhumid.
	got, err := c.Classify(Indicators{ABT: 12, APP: 1000, PER: 1})
	require.NoError(t, err)

	wantDegrees := map[string]float64{
		"bosque humedo templado frio":   1.0 / 3,
		"estepa templado frio":          1.0 / 3,
		"bosque humedo templado calido": 0.5,
		"bosque seco templado calido":   0.5,
	}
	if diff := cmp.Diff(wantDegrees, got.Degrees, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("degrees mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "bosque humedo templado calido", got.Zone(0))
	assert.Equal(t, "bosque seco templado calido", got.Zone(1))
	assert.Equal(t, "bosque humedo templado frio", got.Zone(2))
	assert.Equal(t, "", got.Zone(3))
	assert.Len(t, got.Zones, TopZones)
	assert.Equal(t, fuzzy.RGB{R: 83, G: 125, B: 130}, got.Color)
}

func TestClassifier_Larsen(t *testing.T) {
	c, err := NewClassifier(loadZonify(t), fuzzy.Larsen)
	require.NoError(t, err)
	assert.Equal(t, fuzzy.Larsen, c.Mode())

	got, err := c.Classify(Indicators{ABT: 12, APP: 1000, PER: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, got.Degrees["bosque seco templado calido"], 1e-9)
	assert.InDelta(t, 1.0/6, got.Degrees["estepa templado frio"], 1e-9)
	assert.Equal(t, fuzzy.RGB{R: 86, G: 124, B: 125}, got.Color)
}

func TestClassifier_PlateauIsSingleZone(t *testing.T) {
	c, err := NewClassifier(loadZonify(t), fuzzy.Mamdani)
	require.NoError(t, err)

	// Both inputs sit on the flat tops of the outermost labels.
	got, err := c.Classify(Indicators{ABT: 29, APP: nan, PER: 0.15})
	require.NoError(t, err)
	require.Len(t, got.Zones, 1)
	assert.Equal(t, "bosque pluvial tropical", got.Zone(0))
	assert.InDelta(t, 1.0, got.Zones[0].Degree, 1e-9)

	color, err := c.KnowledgeBase().Consequent().Color("bosque pluvial tropical")
	require.NoError(t, err)
	assert.Equal(t, color, got.Color)
}

func TestClassifier_Explain(t *testing.T) {
	c, err := NewClassifier(loadZonify(t), fuzzy.Mamdani)
	require.NoError(t, err)

	firings, err := c.Explain(Indicators{ABT: 12, APP: 1000, PER: 1})
	require.NoError(t, err)
	assert.Len(t, firings, 56)

	fired := 0
	for _, f := range firings {
		if f.Degree > 0 {
			fired++
		}
	}
	assert.Equal(t, 4, fired)
}

func TestClassifier_Concurrent(t *testing.T) {
	c, err := NewClassifier(loadZonify(t), fuzzy.Mamdani)
	require.NoError(t, err)
	want, err := c.Classify(Indicators{ABT: 12, APP: 1000, PER: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Classify(Indicators{ABT: 12, APP: 1000, PER: 1})
			if assert.NoError(t, err) {
				assert.Equal(t, want.Color, got.Color)
				assert.Equal(t, want.Zones, got.Zones)
			}
		}()
	}
	wg.Wait()
}

func TestNewClassifier_Errors(t *testing.T) {
	k := loadZonify(t)
	_, err := NewClassifier(k, fuzzy.Mode(0))
	assert.ErrorIs(t, err, fuzzy.ErrUnsupportedMode)

	other, err := kb.Load(filepath.Join("..", "kb", "testdata", "variables.json"), filepath.Join("..", "kb", "testdata", "rules.json"))
	require.NoError(t, err)
	_, err = NewClassifier(other, fuzzy.Mamdani)
	assert.ErrorIs(t, err, fuzzy.ErrInvalidValue)

	doc := `{
		"ABT": {"Tipo": "Cuantitativa", "Dominio": [-1, 5], "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"frio": [-1, 2], "calido": [2, 5]}},
		"Z": {"Tipo": "Cuantitativa", "Dominio": [0, 1], "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"bajo": [0, 0.5], "alto": [0.5, 1]}}
	}`
	vars, err := kb.ParseVariables(strings.NewReader(doc))
	require.NoError(t, err)
	fis, err := fuzzy.New([]*fuzzy.Variable{vars.Get("ABT")}, vars.Get("Z"))
	require.NoError(t, err)
	_, err = NewClassifier(&kb.KnowledgeBase{Variables: vars, FIS: fis}, fuzzy.Mamdani)
	assert.ErrorIs(t, err, fuzzy.ErrNotQualitative)
}
