package fuzzy

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Kind distinguishes numeric variables from colour-labelled ones.
type Kind int

const (
	Quantitative Kind = iota
	Qualitative
)

func (k Kind) String() string {
	if k == Qualitative {
		return "qualitative"
	}
	return "quantitative"
}

// RGB is a colour with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// String renders the colour as #rrggbb.
func (c RGB) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// ColorLabel names one label of a qualitative variable and its colour.
type ColorLabel struct {
	Name  string
	Color RGB
}

// Variable is a linguistic variable: an ordered collection of fuzzy sets
// over a shared domain. A qualitative variable additionally carries one
// colour per set and can be defuzzified to a colour.
//
// Sets are added during construction only. Once a FIS owning the variable
// has evaluated, the variable is frozen and AddSet fails with ErrFrozen.
type Variable struct {
	name   string
	domain Domain
	sets   []*Set
	index  map[string]int

	// palette is nil for quantitative variables, otherwise aligned with sets.
	palette []RGB

	frozen atomic.Bool
}

// NewVariable creates an empty quantitative variable.
func NewVariable(name string, d Domain) (*Variable, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("variable name %q: %w", name, ErrInvalidName)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return &Variable{name: name, domain: d, index: make(map[string]int)}, nil
}

// NewQualitativeVariable creates a variable with one triangular set per label,
// centred on the label index, over the domain [0, n-1].
func NewQualitativeVariable(name string, labels []ColorLabel) (*Variable, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("qualitative variable %q has no labels: %w", name, ErrInvalidParameter)
	}
	n := float64(len(labels) - 1)
	v, err := NewVariable(name, Domain{Lo: 0, Hi: n})
	if err != nil {
		return nil, err
	}
	for i, l := range labels {
		c := float64(i)
		s, err := Triangular(l.Name, math.Max(c-1, 0), c, math.Min(c+1, n))
		if err != nil {
			return nil, fmt.Errorf("qualitative variable %q: %w", name, err)
		}
		if err := v.add(s); err != nil {
			return nil, err
		}
	}
	v.palette = make([]RGB, len(labels))
	for i, l := range labels {
		v.palette[i] = l.Color
	}
	return v, nil
}

func (v *Variable) Name() string   { return v.name }
func (v *Variable) Domain() Domain { return v.domain }

// Kind reports whether the variable carries a colour palette.
func (v *Variable) Kind() Kind {
	if v.palette != nil {
		return Qualitative
	}
	return Quantitative
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s %s %v %v", v.Kind(), v.name, v.domain, v.SetNames())
}

func (v *Variable) add(s *Set) error {
	if s == nil {
		return fmt.Errorf("variable %q: nil fuzzy set: %w", v.name, ErrInvalidParameter)
	}
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if _, dup := v.index[s.name]; dup {
		return fmt.Errorf("variable %q already has set %q: %w", v.name, s.name, ErrDuplicateName)
	}
	v.index[s.name] = len(v.sets)
	v.sets = append(v.sets, s)
	return nil
}

// AddSet appends a set to a quantitative variable.
func (v *Variable) AddSet(s *Set) error {
	if v.frozen.Load() {
		return fmt.Errorf("variable %q: %w", v.name, ErrFrozen)
	}
	if v.palette != nil {
		return fmt.Errorf("variable %q: qualitative sets are fixed by their labels: %w", v.name, ErrInvalidParameter)
	}
	return v.add(s)
}

// AddSets appends sets in order, stopping at the first failure.
func (v *Variable) AddSets(sets ...*Set) error {
	for _, s := range sets {
		if err := v.AddSet(s); err != nil {
			return err
		}
	}
	return nil
}

func (v *Variable) freeze() { v.frozen.Store(true) }

// Set returns the named set, or nil.
func (v *Variable) Set(name string) *Set {
	if i, ok := v.index[name]; ok {
		return v.sets[i]
	}
	return nil
}

func (v *Variable) HasSet(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Sets returns the sets in registration order.
func (v *Variable) Sets() []*Set {
	return append([]*Set(nil), v.sets...)
}

// SetNames returns the set names in registration order.
func (v *Variable) SetNames() []string {
	names := make([]string, len(v.sets))
	for i, s := range v.sets {
		names[i] = s.name
	}
	return names
}

// Color returns the colour of a label of a qualitative variable.
func (v *Variable) Color(label string) (RGB, error) {
	if v.palette == nil {
		return RGB{}, fmt.Errorf("variable %q: %w", v.name, ErrNotQualitative)
	}
	i, ok := v.index[label]
	if !ok {
		return RGB{}, fmt.Errorf("variable %q has no label %q: %w", v.name, label, ErrNotFound)
	}
	return v.palette[i], nil
}

// DOF returns the degree of fulfillment of x for the named set.
func (v *Variable) DOF(set string, x float64) (float64, error) {
	s := v.Set(set)
	if s == nil {
		return 0, fmt.Errorf("variable %q has no set %q: %w", v.name, set, ErrNotFound)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("variable %q: value %v is not finite: %w", v.name, x, ErrInvalidValue)
	}
	return s.DOF(x), nil
}

func (v *Variable) checkDegrees(degrees map[string]float64) error {
	for name, d := range degrees {
		if !v.HasSet(name) {
			return fmt.Errorf("variable %q has no set %q: %w", v.name, name, ErrNotFound)
		}
		if math.IsNaN(d) || d < 0 || d > 1 {
			return fmt.Errorf("variable %q: degree %v of set %q outside [0,1]: %w", v.name, d, name, ErrInvalidValue)
		}
	}
	return nil
}

// Aggregate samples the domain at step and returns the sample points and the
// aggregated output curve: each set is clipped (Mamdani) or scaled (Larsen)
// by its degree, and the results are folded with the mode's t-conorm
// starting from zero.
func (v *Variable) Aggregate(degrees map[string]float64, mode Mode, step float64) ([]float64, []float64, error) {
	if err := mode.Valid(); err != nil {
		return nil, nil, err
	}
	if err := v.checkDegrees(degrees); err != nil {
		return nil, nil, err
	}
	xs, err := v.domain.Sample(step)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q: %w", v.name, err)
	}
	mu := make([]float64, len(xs))
	for _, s := range v.sets {
		d, ok := degrees[s.name]
		if !ok {
			continue
		}
		for i, x := range xs {
			mu[i] = mode.TConorm(mu[i], mode.TNorm(s.DOF(x), d))
		}
	}
	return xs, mu, nil
}

// Defuzzify reduces a degree map to a crisp value.
//
// Centroid fails with ErrZeroDenominator when the aggregated curve is zero
// everywhere. AverageMax averages the points within AverageMaxBand of the
// curve maximum; it fails with ErrEmptyBand when nothing is sampled and with
// ErrZeroDenominator when nothing fired.
func (v *Variable) Defuzzify(degrees map[string]float64, method Method, mode Mode, step float64) (float64, error) {
	if method != Centroid && method != AverageMax {
		return 0, fmt.Errorf("variable %q: method %v: %w", v.name, method, ErrUnsupportedMethod)
	}
	xs, mu, err := v.Aggregate(degrees, mode, step)
	if err != nil {
		return 0, err
	}
	if method == Centroid {
		return centroid(v.name, xs, mu, step)
	}
	return averageMax(v.name, xs, mu)
}

func centroid(name string, xs, mu []float64, step float64) (float64, error) {
	var num, den float64
	for i, x := range xs {
		num += x * mu[i]
		den += mu[i]
	}
	num *= step
	den *= step
	if den == 0 {
		return 0, fmt.Errorf("variable %q: centroid of an empty output: %w", name, ErrZeroDenominator)
	}
	return num / den, nil
}

func averageMax(name string, xs, mu []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, fmt.Errorf("variable %q: no sampled points: %w", name, ErrEmptyBand)
	}
	peak := 0.0
	for _, m := range mu {
		peak = math.Max(peak, m)
	}
	if peak == 0 {
		return 0, fmt.Errorf("variable %q: maxima of an empty output: %w", name, ErrZeroDenominator)
	}
	var sum float64
	var n int
	for i, x := range xs {
		if mu[i] > peak-AverageMaxBand {
			sum += x
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("variable %q: %w", name, ErrEmptyBand)
	}
	return sum / float64(n), nil
}

// DefuzzifyColor blends the label colours of a qualitative variable,
// weighting each by its normalised degree. Channels are truncated, not
// rounded.
func (v *Variable) DefuzzifyColor(degrees map[string]float64) (RGB, error) {
	if v.palette == nil {
		return RGB{}, fmt.Errorf("variable %q: %w", v.name, ErrNotQualitative)
	}
	if err := v.checkDegrees(degrees); err != nil {
		return RGB{}, err
	}
	var total float64
	for _, s := range v.sets {
		total += degrees[s.name]
	}
	if total == 0 {
		return RGB{}, fmt.Errorf("variable %q: colour of zero total degree: %w", v.name, ErrZeroDenominator)
	}
	var r, g, b float64
	for i, s := range v.sets {
		w := degrees[s.name] / total
		c := v.palette[i]
		r += float64(c.R) * w
		g += float64(c.G) * w
		b += float64(c.B) * w
	}
	return RGB{R: channel(r), G: channel(g), B: channel(b)}, nil
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Trunc(v))))
}
