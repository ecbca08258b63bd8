package kb

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioclas/internal/fuzzy"
)

func loadTestdata(t *testing.T) *KnowledgeBase {
	t.Helper()
	k, err := Load(filepath.Join("testdata", "variables.json"), filepath.Join("testdata", "rules.json"))
	require.NoError(t, err)
	return k
}

func TestParseVariables_OrderAndSets(t *testing.T) {
	k := loadTestdata(t)
	vars := k.Variables

	assert.Equal(t, []string{"T", "H", "Zona"}, vars.Names())
	assert.Equal(t, 3, vars.Len())
	assert.Nil(t, vars.Get("absent"))

	temp := vars.Get("T")
	require.NotNil(t, temp)
	assert.Equal(t, fuzzy.Quantitative, temp.Kind())
	assert.Equal(t, fuzzy.Domain{Lo: 0, Hi: 30}, temp.Domain())
	assert.Equal(t, []string{"frio", "templado", "calido"}, temp.SetNames())

	// Peaks sit at label midpoints; neighbours cross at 0.5.
	for _, tc := range []struct {
		set  string
		x    float64
		want float64
	}{
		{"frio", 0, 1},
		{"frio", 5, 1},
		{"frio", 10, 0.5},
		{"templado", 15, 1},
		{"templado", 10, 0.5},
		{"templado", 25, 0},
		{"calido", 30, 1},
		{"calido", 20, 0.5},
	} {
		got, err := temp.DOF(tc.set, tc.x)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9, "%s(%v)", tc.set, tc.x)
	}

	zona := vars.Get("Zona")
	require.NotNil(t, zona)
	assert.Equal(t, fuzzy.Qualitative, zona.Kind())
	assert.Equal(t, fuzzy.Domain{Lo: 0, Hi: 2}, zona.Domain())
	c, err := zona.Color("estepa")
	require.NoError(t, err)
	assert.Equal(t, fuzzy.RGB{R: 255, G: 255, B: 0}, c)

	assert.Equal(t, LinearScale, vars.Scale("T"))
	assert.Equal(t, Scale{Kind: Exponential, Base: 2, Constant: 1}, vars.Scale("H"))
	assert.Equal(t, LinearScale, vars.Scale("Zona"))
}

func TestParseVariables_YAML(t *testing.T) {
	doc := `
ABT:
  Tipo: Cuantitativa
  Dominio: [-1.0, 5.33]
  Escala: {Tipo: Exponencial, Base: 2, Constante: 0.75}
  Etiquetas:
    0a1.5: [-1, 1]
    1.5a3: [1, 2]
`
	vars, err := ParseVariables(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"0a1.5", "1.5a3"}, vars.Get("ABT").SetNames())
	assert.Equal(t, 0.75, vars.Scale("ABT").Constant)
}

func TestParseVariables_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not a mapping", `[1, 2]`},
		{"bad type", `{"X": {"Tipo": "Difusa", "Etiquetas": {"a": [0, 1]}}}`},
		{"missing type", `{"X": {"Etiquetas": {"a": [0, 1]}}}`},
		{"missing labels", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 1], "Escala": {"Tipo": "Lineal"}}}`},
		{"missing domain", `{"X": {"Tipo": "Cuantitativa", "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"decreasing domain", `{"X": {"Tipo": "Cuantitativa", "Dominio": [2, 0], "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"domain arity", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0], "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"missing scale", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 2], "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"bad scale type", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 2], "Escala": {"Tipo": "Cubica"}, "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"base one", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 2], "Escala": {"Tipo": "Exponencial", "Base": 1, "Constante": 1}, "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"missing constant", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 2], "Escala": {"Tipo": "Exponencial", "Base": 2}, "Etiquetas": {"a": [0, 1], "b": [1, 2]}}}`},
		{"single label", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 2], "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"a": [0, 2]}}}`},
		{"label not numeric", `{"X": {"Tipo": "Cuantitativa", "Dominio": [0, 2], "Escala": {"Tipo": "Lineal"}, "Etiquetas": {"a": ["x", 1], "b": [1, 2]}}}`},
		{"colour range", `{"Z": {"Tipo": "Cualitativa", "Etiquetas": {"a": [0, 0, 300]}}}`},
		{"colour fraction", `{"Z": {"Tipo": "Cualitativa", "Etiquetas": {"a": [0, 0.5, 3]}}}`},
		{"colour arity", `{"Z": {"Tipo": "Cualitativa", "Etiquetas": {"a": [0, 0]}}}`},
		{"duplicate variable", `{"Z": {"Tipo": "Cualitativa", "Etiquetas": {"a": [0, 0, 0]}}, "Z": {"Tipo": "Cualitativa", "Etiquetas": {"a": [0, 0, 0]}}}`},
		{"malformed", `{"Z": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVariables(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDefinition)
		})
	}
}

func TestTriangulate(t *testing.T) {
	sets, err := Triangulate([]LabelRange{
		{Name: "a", Lo: 0, Hi: 2},
		{Name: "b", Lo: 2, Hi: 4},
		{Name: "c", Lo: 4, Hi: 6},
	})
	require.NoError(t, err)
	require.Len(t, sets, 3)

	xs := []float64{0, 0.5, 1, 2, 3, 4, 5, 6}
	want := [][]float64{
		{1, 1, 1, 0.5, 0, 0, 0, 0},
		{0, 0, 0, 0.5, 1, 0.5, 0, 0},
		{0, 0, 0, 0, 0, 0.5, 1, 1},
	}
	for i, s := range sets {
		if diff := cmp.Diff(want[i], s.MF(xs), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("set %s mismatch (-want +got):\n%s", s.Name(), diff)
		}
	}

	_, err = Triangulate([]LabelRange{{Name: "only", Lo: 0, Hi: 1}})
	assert.ErrorIs(t, err, ErrDefinition)
}

func TestPartitionDeviation(t *testing.T) {
	k := loadTestdata(t)
	for _, name := range []string{"T", "H"} {
		v := k.Variables.Get(name)
		dev, err := PartitionDeviation(v, v.Domain().Width()/500)
		require.NoError(t, err)
		assert.Less(t, dev, fuzzy.Epsilon, name)
	}

	// Gaps between sets show up as deviation.
	v, err := fuzzy.NewVariable("gappy", fuzzy.Domain{Lo: 0, Hi: 10})
	require.NoError(t, err)
	a, _ := fuzzy.Triangular("a", 0, 2, 4)
	b, _ := fuzzy.Triangular("b", 6, 8, 10)
	require.NoError(t, v.AddSets(a, b))
	dev, err := PartitionDeviation(v, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dev, 1e-9)

	_, err = PartitionDeviation(v, 0)
	assert.Error(t, err)
}

func TestParseRuleSet(t *testing.T) {
	k := loadTestdata(t)

	assert.Equal(t, "Zona", k.Consequent().Name())
	require.Len(t, k.Antecedents(), 2)
	assert.Equal(t, "T", k.Antecedents()[0].Name())
	assert.Equal(t, []string{"r1", "r2", "r3"}, k.FIS.RuleNames())
	// Clauses follow a_variables order, not file order.
	assert.Equal(t, "r3: IF T IS calido AND H IS humedo THEN Zona IS selva", k.FIS.Rule("r3").String())

	_, degrees, err := k.FIS.Eval(map[string]float64{"T": 10, "H": 0}, fuzzy.Mamdani)
	require.NoError(t, err)
	want := map[string]float64{"tundra": 0.5, "estepa": 0.5}
	if diff := cmp.Diff(want, degrees, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("degrees mismatch (-want +got):\n%s", diff)
	}
	color, err := k.Consequent().DefuzzifyColor(degrees)
	require.NoError(t, err)
	assert.Equal(t, fuzzy.RGB{R: 127, G: 127, B: 127}, color)
}

func TestParseRuleSet_Errors(t *testing.T) {
	vf, err := os.ReadFile(filepath.Join("testdata", "variables.json"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		doc    string
		alsoIs error
	}{
		{"not a mapping", `["T"]`, nil},
		{"no antecedents", `{"a_variables": [], "c_variable": "Zona", "rules": {}}`, nil},
		{"unknown antecedent", `{"a_variables": ["T", "Q"], "c_variable": "Zona", "rules": {}}`, nil},
		{"missing consequent", `{"a_variables": ["T"], "rules": {}}`, nil},
		{"unknown consequent", `{"a_variables": ["T"], "c_variable": "Bioma", "rules": {}}`, nil},
		{"consequent reused", `{"a_variables": ["T", "Zona"], "c_variable": "Zona", "rules": {}}`, fuzzy.ErrDuplicateName},
		{"rules missing", `{"a_variables": ["T"], "c_variable": "Zona"}`, nil},
		{"rule not a mapping", `{"a_variables": ["T"], "c_variable": "Zona", "rules": {"r1": 3}}`, nil},
		{"no antecedentes", `{"a_variables": ["T"], "c_variable": "Zona", "rules": {"r1": {"consecuente": {"Zona": "selva"}}}}`, nil},
		{"wrong consequent var", `{"a_variables": ["T"], "c_variable": "Zona", "rules": {"r1": {"antecedentes": {"T": "frio"}, "consecuente": {"T": "frio"}}}}`, nil},
		{"unknown set", `{"a_variables": ["T"], "c_variable": "Zona", "rules": {"r1": {"antecedentes": {"T": "tibio"}, "consecuente": {"Zona": "selva"}}}}`, fuzzy.ErrNotFound},
		{"variable outside a_variables", `{"a_variables": ["T"], "c_variable": "Zona", "rules": {"r1": {"antecedentes": {"H": "seco"}, "consecuente": {"Zona": "selva"}}}}`, fuzzy.ErrNotFound},
		{"unknown zone", `{"a_variables": ["T"], "c_variable": "Zona", "rules": {"r1": {"antecedentes": {"T": "frio"}, "consecuente": {"Zona": "taiga"}}}}`, fuzzy.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars, err := ParseVariables(strings.NewReader(string(vf)))
			require.NoError(t, err)
			_, err = ParseRuleSet(strings.NewReader(tt.doc), vars)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDefinition)
			if tt.alsoIs != nil {
				assert.ErrorIs(t, err, tt.alsoIs)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "absent.json"), filepath.Join("testdata", "rules.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(filepath.Join("testdata", "variables.json"), filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_HoldridgeDefinitions(t *testing.T) {
	k, err := Load(filepath.Join("..", "..", "configs", "variables.json"), filepath.Join("..", "..", "configs", "FIS-Zonify.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ABT", "APP", "PER", "ZonaDeVida"}, k.Variables.Names())
	assert.Len(t, k.FIS.Rules(), 56)
	assert.Len(t, k.Consequent().SetNames(), 38)

	abt := k.Variables.Get("ABT")
	dev, err := PartitionDeviation(abt, 0.01)
	require.NoError(t, err)
	assert.Less(t, dev, fuzzy.Epsilon)

	// 3 degrees lies halfway between the subpolar and boreal peaks.
	x, err := k.Scale("ABT").Normalize(3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, x, 1e-12)
	sub, _ := abt.DOF("1.5a3", x)
	boreal, _ := abt.DOF("3a6", x)
	assert.InDelta(t, 0.5, sub, 1e-9)
	assert.InDelta(t, 0.5, boreal, 1e-9)
}

func TestScale(t *testing.T) {
	s, err := NewExponentialScale(2, 0.75)
	require.NoError(t, err)

	x, err := s.Normalize(12)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, x, 1e-12)
	assert.InDelta(t, 12.0, s.Denormalize(x), 1e-12)
	assert.Equal(t, "Exponencial(B=2, K=0.75)", s.String())

	d := s.PhysicalDomain(fuzzy.Domain{Lo: -1, Hi: 5})
	assert.InDelta(t, 0.375, d.Lo, 1e-12)
	assert.InDelta(t, 24.0, d.Hi, 1e-12)

	_, err = s.Normalize(0)
	assert.ErrorIs(t, err, fuzzy.ErrInvalidValue)
	_, err = s.Normalize(math.NaN())
	assert.ErrorIs(t, err, fuzzy.ErrInvalidValue)

	lin, err := LinearScale.Normalize(-3)
	require.NoError(t, err)
	assert.Equal(t, -3.0, lin)
	assert.Equal(t, "Lineal", LinearScale.String())

	for _, bad := range [][2]float64{{1, 1}, {0, 1}, {-2, 1}, {2, 0}, {2, -1}, {math.Inf(1), 1}} {
		_, err := NewExponentialScale(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrDefinition, "base=%v constant=%v", bad[0], bad[1])
	}
}
