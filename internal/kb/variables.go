package kb

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"bioclas/internal/fuzzy"
	"bioclas/internal/logging"
)

// Definition keywords.
const (
	keyType      = "Tipo"
	keyDomain    = "Dominio"
	keyScale     = "Escala"
	keyLabels    = "Etiquetas"
	keyBase      = "Base"
	keyConstant  = "Constante"
	typeQuant    = "Cuantitativa"
	typeQual     = "Cualitativa"
	scaleLinear  = "Lineal"
	scaleExp     = "Exponencial"
	partitionRes = 1000 // samples per domain when checking partitions
)

// LabelRange is a quantitative label and the sub-range it covers.
type LabelRange struct {
	Name   string
	Lo, Hi float64
}

// Mid returns the centre of the sub-range.
func (l LabelRange) Mid() float64 { return (l.Lo + l.Hi) / 2 }

// Variables is an ordered registry of loaded variables and their scales.
type Variables struct {
	order  []string
	vars   map[string]*fuzzy.Variable
	scales map[string]Scale
}

// Names returns the variable names in declaration order.
func (vs *Variables) Names() []string { return append([]string(nil), vs.order...) }

// Get returns the named variable, or nil.
func (vs *Variables) Get(name string) *fuzzy.Variable { return vs.vars[name] }

// Scale returns the scale of the named variable. Qualitative variables and
// unknown names report the linear scale.
func (vs *Variables) Scale(name string) Scale {
	if s, ok := vs.scales[name]; ok {
		return s
	}
	return LinearScale
}

func (vs *Variables) Len() int { return len(vs.order) }

// ParseVariables reads variable definitions (JSON or YAML) in declaration
// order. Each call builds fresh variables.
func ParseVariables(r io.Reader) (*Variables, error) {
	root, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	if root.Kind != yaml.MappingNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("variables document must be a non-empty mapping: %w", ErrDefinition)
	}

	vs := &Variables{
		vars:   make(map[string]*fuzzy.Variable),
		scales: make(map[string]Scale),
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i].Value, root.Content[i+1]
		if _, dup := vs.vars[name]; dup {
			return nil, fmt.Errorf("variable %q defined twice (line %d): %w", name, root.Content[i].Line, ErrDefinition)
		}
		v, scale, err := parseVariable(name, body)
		if err != nil {
			return nil, err
		}
		vs.order = append(vs.order, name)
		vs.vars[name] = v
		if v.Kind() == fuzzy.Quantitative {
			vs.scales[name] = scale
		}
		logging.KBDebug("loaded %s", v)
	}
	return vs, nil
}

func parseVariable(name string, body *yaml.Node) (*fuzzy.Variable, Scale, error) {
	fail := func(format string, args ...interface{}) (*fuzzy.Variable, Scale, error) {
		return nil, Scale{}, fmt.Errorf("variable %q: %s: %w", name, fmt.Sprintf(format, args...), ErrDefinition)
	}
	if body.Kind != yaml.MappingNode {
		return fail("attributes must be a mapping")
	}
	typ := field(body, keyType)
	if typ == nil {
		return fail("missing %s", keyType)
	}
	labels := field(body, keyLabels)
	if labels == nil || labels.Kind != yaml.MappingNode || len(labels.Content) == 0 {
		return fail("%s must be a non-empty mapping", keyLabels)
	}

	switch typ.Value {
	case typeQual:
		v, err := parseQualitative(name, labels)
		return v, LinearScale, err
	case typeQuant:
	default:
		return fail("invalid %s %q (want %s or %s)", keyType, typ.Value, typeQuant, typeQual)
	}

	domainNode := field(body, keyDomain)
	if domainNode == nil {
		return fail("missing %s", keyDomain)
	}
	bounds, err := numbers(domainNode, 2)
	if err != nil {
		return fail("%s: %v", keyDomain, err)
	}
	if bounds[0] >= bounds[1] {
		return fail("%s %v must be increasing", keyDomain, bounds)
	}
	scaleNode := field(body, keyScale)
	if scaleNode == nil {
		return fail("missing %s", keyScale)
	}
	scale, err := parseScale(scaleNode)
	if err != nil {
		return nil, Scale{}, fmt.Errorf("variable %q: %w", name, err)
	}

	ranges := make([]LabelRange, 0, len(labels.Content)/2)
	for i := 0; i+1 < len(labels.Content); i += 2 {
		r, err := numbers(labels.Content[i+1], 2)
		if err != nil {
			return fail("label %q: %v", labels.Content[i].Value, err)
		}
		ranges = append(ranges, LabelRange{Name: labels.Content[i].Value, Lo: r[0], Hi: r[1]})
	}

	v, err := fuzzy.NewVariable(name, fuzzy.Domain{Lo: bounds[0], Hi: bounds[1]})
	if err != nil {
		return nil, Scale{}, fmt.Errorf("%w: %w", ErrDefinition, err)
	}
	sets, err := Triangulate(ranges)
	if err != nil {
		return nil, Scale{}, fmt.Errorf("variable %q: %w", name, err)
	}
	if err := v.AddSets(sets...); err != nil {
		return nil, Scale{}, fmt.Errorf("%w: %w", ErrDefinition, err)
	}

	dev, err := PartitionDeviation(v, v.Domain().Width()/partitionRes)
	if err == nil && dev > fuzzy.Epsilon {
		logging.KBWarn("variable %q: memberships do not sum to 1 (max deviation %.4f)", name, dev)
	}
	return v, scale, nil
}

// Triangulate builds one set per label: triangles peaking at each label's
// midpoint with feet at the neighbouring midpoints, and trapezoids flat out
// to the outer bounds for the first and last label.
func Triangulate(labels []LabelRange) ([]*fuzzy.Set, error) {
	n := len(labels)
	if n < 2 {
		return nil, fmt.Errorf("a quantitative variable needs at least two labels, got %d: %w", n, ErrDefinition)
	}
	sets := make([]*fuzzy.Set, n)
	for i, l := range labels {
		var s *fuzzy.Set
		var err error
		switch i {
		case 0:
			s, err = fuzzy.Trapezoidal(l.Name, l.Lo, l.Lo, l.Mid(), labels[1].Mid())
		case n - 1:
			s, err = fuzzy.Trapezoidal(l.Name, labels[i-1].Mid(), l.Mid(), l.Hi, l.Hi)
		default:
			s, err = fuzzy.Triangular(l.Name, labels[i-1].Mid(), l.Mid(), labels[i+1].Mid())
		}
		if err != nil {
			return nil, fmt.Errorf("label %q: %w: %w", l.Name, ErrDefinition, err)
		}
		sets[i] = s
	}
	return sets, nil
}

func parseQualitative(name string, labels *yaml.Node) (*fuzzy.Variable, error) {
	colors := make([]fuzzy.ColorLabel, 0, len(labels.Content)/2)
	for i := 0; i+1 < len(labels.Content); i += 2 {
		label := labels.Content[i].Value
		rgb, err := numbers(labels.Content[i+1], 3)
		if err != nil {
			return nil, fmt.Errorf("variable %q label %q: colour: %v: %w", name, label, err, ErrDefinition)
		}
		var c [3]uint8
		for j, ch := range rgb {
			if ch != math.Trunc(ch) || ch < 0 || ch > 255 {
				return nil, fmt.Errorf("variable %q label %q: colour channel %v outside 0..255: %w", name, label, ch, ErrDefinition)
			}
			c[j] = uint8(ch)
		}
		colors = append(colors, fuzzy.ColorLabel{Name: label, Color: fuzzy.RGB{R: c[0], G: c[1], B: c[2]}})
	}
	v, err := fuzzy.NewQualitativeVariable(name, colors)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDefinition, err)
	}
	return v, nil
}

func parseScale(n *yaml.Node) (Scale, error) {
	if n.Kind != yaml.MappingNode {
		return Scale{}, fmt.Errorf("%s must be a mapping: %w", keyScale, ErrDefinition)
	}
	typ := field(n, keyType)
	if typ == nil {
		return Scale{}, fmt.Errorf("%s: missing %s: %w", keyScale, keyType, ErrDefinition)
	}
	switch typ.Value {
	case scaleLinear:
		return LinearScale, nil
	case scaleExp:
	default:
		return Scale{}, fmt.Errorf("%s: invalid %s %q (want %s or %s): %w",
			keyScale, keyType, typ.Value, scaleLinear, scaleExp, ErrDefinition)
	}
	var params [2]float64
	for i, key := range []string{keyBase, keyConstant} {
		p := field(n, key)
		if p == nil {
			return Scale{}, fmt.Errorf("%s: exponential scale missing %s: %w", keyScale, key, ErrDefinition)
		}
		if err := p.Decode(&params[i]); err != nil {
			return Scale{}, fmt.Errorf("%s: %s: %v: %w", keyScale, key, err, ErrDefinition)
		}
	}
	return NewExponentialScale(params[0], params[1])
}

// PartitionDeviation samples the variable's domain and returns the largest
// |sum of memberships - 1|. Zero means the sets form a Ruspini partition.
func PartitionDeviation(v *fuzzy.Variable, step float64) (float64, error) {
	xs, err := v.Domain().Sample(step)
	if err != nil {
		return 0, err
	}
	sets := v.Sets()
	worst := 0.0
	for _, x := range xs {
		sum := 0.0
		for _, s := range sets {
			sum += s.DOF(x)
		}
		worst = math.Max(worst, math.Abs(sum-1))
	}
	return worst, nil
}

// decodeDocument parses r into its root node. JSON input may be indented
// with tabs, which YAML forbids; JSON strings cannot contain raw tabs, so
// they are safe to replace.
func decodeDocument(r io.Reader) (*yaml.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document: %w", ErrDefinition)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		data = bytes.ReplaceAll(data, []byte{'\t'}, []byte{' '})
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definitions: %v: %w", err, ErrDefinition)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document: %w", ErrDefinition)
	}
	return doc.Content[0], nil
}

// field returns the value node of key in a mapping node, or nil.
func field(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// numbers decodes a sequence of exactly n finite numbers.
func numbers(n *yaml.Node, count int) ([]float64, error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != count {
		return nil, fmt.Errorf("expected a list of %d numbers (line %d)", count, n.Line)
	}
	out := make([]float64, count)
	for i, c := range n.Content {
		if err := c.Decode(&out[i]); err != nil {
			return nil, fmt.Errorf("line %d: %v", c.Line, err)
		}
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, fmt.Errorf("line %d: %v is not finite", c.Line, out[i])
		}
	}
	return out, nil
}
