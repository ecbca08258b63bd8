package holdridge

import (
	"fmt"
	"math"
	"sort"

	"bioclas/internal/fuzzy"
	"bioclas/internal/kb"
)

// Antecedent variable names the classifier knows how to feed.
const (
	VarABT = "ABT"
	VarAPP = "APP"
	VarPER = "PER"
)

// TopZones is how many zones a classification reports.
const TopZones = 3

// Zone is a life zone and its aggregated degree.
type Zone struct {
	Name   string
	Degree float64
}

// Classification is the result for one point.
type Classification struct {
	Inputs  map[string]float64 // normalised, clamped FIS inputs
	Degrees map[string]float64 // every fired zone
	Zones   []Zone             // strongest first, at most TopZones
	Color   fuzzy.RGB
}

// Zone returns the i-th strongest zone name, or "" if fewer fired.
func (c *Classification) Zone(i int) string {
	if i < 0 || i >= len(c.Zones) {
		return ""
	}
	return c.Zones[i].Name
}

// Classifier maps indicators to life zones through a knowledge base whose
// antecedents are drawn from ABT, APP and PER and whose consequent is
// qualitative. Safe for concurrent use.
type Classifier struct {
	kb    *kb.KnowledgeBase
	mode  fuzzy.Mode
	order map[string]int // consequent label index, for tie breaks
}

// NewClassifier validates that k can be driven by Holdridge indicators.
func NewClassifier(k *kb.KnowledgeBase, mode fuzzy.Mode) (*Classifier, error) {
	if err := mode.Valid(); err != nil {
		return nil, err
	}
	for _, v := range k.Antecedents() {
		switch v.Name() {
		case VarABT, VarAPP, VarPER:
		default:
			return nil, fmt.Errorf("antecedent %q is not a Holdridge indicator (want %s, %s or %s): %w",
				v.Name(), VarABT, VarAPP, VarPER, fuzzy.ErrInvalidValue)
		}
	}
	cons := k.Consequent()
	if cons.Kind() != fuzzy.Qualitative {
		return nil, fmt.Errorf("consequent %q: %w", cons.Name(), fuzzy.ErrNotQualitative)
	}
	order := make(map[string]int)
	for i, name := range cons.SetNames() {
		order[name] = i
	}
	return &Classifier{kb: k, mode: mode, order: order}, nil
}

// KnowledgeBase returns the rule base in use.
func (c *Classifier) KnowledgeBase() *kb.KnowledgeBase { return c.kb }

// Mode returns the inference mode.
func (c *Classifier) Mode() fuzzy.Mode { return c.mode }

// Inputs clips each indicator to its physical range, maps it through the
// variable's scale and clamps it into the variable's domain. PER is derived
// when missing.
func (c *Classifier) Inputs(in Indicators) (map[string]float64, error) {
	in, err := in.Complete()
	if err != nil && c.kb.FIS.Antecedent(VarPER) != nil {
		return nil, fmt.Errorf("%w: %w", fuzzy.ErrMissingInput, err)
	}
	raw := map[string]float64{
		VarABT: ABTRange.Clip(in.ABT),
		VarAPP: APPRange.Clip(in.APP),
		VarPER: PERRange.Clip(in.PER),
	}
	inputs := make(map[string]float64, len(raw))
	for _, v := range c.kb.Antecedents() {
		value := raw[v.Name()]
		if math.IsNaN(value) {
			return nil, fmt.Errorf("indicator %s is missing: %w", v.Name(), fuzzy.ErrMissingInput)
		}
		x, err := c.kb.Scale(v.Name()).Normalize(value)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", v.Name(), err)
		}
		inputs[v.Name()] = v.Domain().Clamp(x)
	}
	return inputs, nil
}

// Classify evaluates one point. A point no rule fires for fails with
// fuzzy.ErrZeroDenominator.
func (c *Classifier) Classify(in Indicators) (*Classification, error) {
	inputs, err := c.Inputs(in)
	if err != nil {
		return nil, err
	}
	cons, degrees, err := c.kb.FIS.Eval(inputs, c.mode)
	if err != nil {
		return nil, err
	}
	color, err := cons.DefuzzifyColor(degrees)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	return &Classification{
		Inputs:  inputs,
		Degrees: degrees,
		Zones:   c.rank(degrees),
		Color:   color,
	}, nil
}

// Explain returns every rule firing for the point.
func (c *Classifier) Explain(in Indicators) ([]fuzzy.Firing, error) {
	inputs, err := c.Inputs(in)
	if err != nil {
		return nil, err
	}
	return c.kb.FIS.Explain(inputs, c.mode)
}

// rank orders zones by degree, strongest first, ties by label order.
func (c *Classifier) rank(degrees map[string]float64) []Zone {
	zones := make([]Zone, 0, len(degrees))
	for name, d := range degrees {
		zones = append(zones, Zone{Name: name, Degree: d})
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Degree != zones[j].Degree {
			return zones[i].Degree > zones[j].Degree
		}
		return c.order[zones[i].Name] < c.order[zones[j].Name]
	})
	if len(zones) > TopZones {
		zones = zones[:TopZones]
	}
	return zones
}
