package fuzzy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Operators is the pointwise triple behind an operator family.
type Operators struct {
	TNorm      func(a, b float64) float64
	TConorm    func(a, b float64) float64
	Complement func(a float64) float64
}

// FamilyConstructor builds the operators of a family for parameter p.
// Families without a parameter ignore p.
type FamilyConstructor func(p float64) (Operators, error)

// Family is a named, parametrised operator family. It combines sets into
// derived sets whose membership is evaluated lazily from the operands.
type Family struct {
	name     string
	p        float64
	hasParam bool
	ops      Operators
}

// Family names accepted by NewFamily out of the box.
const (
	FamilyMinMax         = "min-max"
	FamilyAlgebraic      = "algebraic"
	FamilyDrastic        = "drastic"
	FamilyDuboisPrade    = "dubois-prade"
	FamilyYager          = "yager"
	FamilySchweizerSklar = "schweizer-sklar"
)

// DefaultDuboisPradeP is the parameter used when dubois-prade is requested
// without one.
const DefaultDuboisPradeP = 0.5

type familyEntry struct {
	build    FamilyConstructor
	hasParam bool
}

var (
	familiesMu sync.RWMutex
	families   = map[string]familyEntry{
		FamilyMinMax:         {build: func(float64) (Operators, error) { return minMaxOps, nil }},
		FamilyAlgebraic:      {build: func(float64) (Operators, error) { return algebraicOps, nil }},
		FamilyDrastic:        {build: func(float64) (Operators, error) { return drasticOps, nil }},
		FamilyDuboisPrade:    {build: duboisPradeOps, hasParam: true},
		FamilyYager:          {build: yagerOps, hasParam: true},
		FamilySchweizerSklar: {build: schweizerSklarOps, hasParam: true},
	}
)

// RegisterFamily adds a family to the registry. Registering an existing name
// is an error; built-in families cannot be replaced.
func RegisterFamily(name string, parametrised bool, build FamilyConstructor) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("operator family name %q: %w", name, ErrInvalidName)
	}
	if build == nil {
		return fmt.Errorf("operator family %q has no constructor: %w", name, ErrInvalidParameter)
	}
	familiesMu.Lock()
	defer familiesMu.Unlock()
	if _, exists := families[name]; exists {
		return fmt.Errorf("operator family %q: %w", name, ErrDuplicateName)
	}
	families[name] = familyEntry{build: build, hasParam: parametrised}
	return nil
}

// Families lists the registered family names in sorted order.
func Families() []string {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	names := make([]string, 0, len(families))
	for n := range families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewFamily looks up name in the registry and builds it with p.
func NewFamily(name string, p float64) (Family, error) {
	familiesMu.RLock()
	entry, ok := families[name]
	familiesMu.RUnlock()
	if !ok {
		return Family{}, fmt.Errorf("operator family %q (available: %s): %w",
			name, strings.Join(Families(), ", "), ErrUnknownFamily)
	}
	ops, err := entry.build(p)
	if err != nil {
		return Family{}, fmt.Errorf("operator family %q: %w", name, err)
	}
	if ops.TNorm == nil || ops.TConorm == nil || ops.Complement == nil {
		return Family{}, fmt.Errorf("operator family %q is missing an operator: %w", name, ErrInvalidParameter)
	}
	return Family{name: name, p: p, hasParam: entry.hasParam, ops: clipped(ops)}, nil
}

func clipped(o Operators) Operators {
	return Operators{
		TNorm:      func(a, b float64) float64 { return clip01(o.TNorm(a, b)) },
		TConorm:    func(a, b float64) float64 { return clip01(o.TConorm(a, b)) },
		Complement: func(a float64) float64 { return clip01(o.Complement(a)) },
	}
}

func mustFamily(name string, p float64) Family {
	f, err := NewFamily(name, p)
	if err != nil {
		panic(err)
	}
	return f
}

// MinMax returns the standard min / max / 1-a family.
func MinMax() Family { return mustFamily(FamilyMinMax, 0) }

// Algebraic returns the product / probabilistic-sum family.
func Algebraic() Family { return mustFamily(FamilyAlgebraic, 0) }

// Drastic returns the drastic product / drastic sum family.
func Drastic() Family { return mustFamily(FamilyDrastic, 0) }

// DuboisPrade returns the Dubois-Prade family, p in (0,1].
func DuboisPrade(p float64) (Family, error) { return NewFamily(FamilyDuboisPrade, p) }

// Yager returns the Yager family, p > 0. Its complement is the Yager complement.
func Yager(p float64) (Family, error) { return NewFamily(FamilyYager, p) }

// SchweizerSklar returns the Schweizer-Sklar family, p > 0.
func SchweizerSklar(p float64) (Family, error) { return NewFamily(FamilySchweizerSklar, p) }

func (f Family) Name() string { return f.name }

// Param returns the family parameter and whether the family uses one.
func (f Family) Param() (float64, bool) { return f.p, f.hasParam }

func (f Family) String() string {
	if f.hasParam {
		return fmt.Sprintf("%s(%g)", f.name, f.p)
	}
	return f.name
}

// Operators exposes the pointwise operators, already clipped to [0,1].
func (f Family) Operators() Operators { return f.ops }

func (f Family) check(sets ...*Set) error {
	if f.ops.TNorm == nil {
		return fmt.Errorf("zero Family value: %w", ErrUnknownFamily)
	}
	for _, s := range sets {
		if s == nil {
			return fmt.Errorf("%s: nil fuzzy set operand: %w", f, ErrInvalidParameter)
		}
	}
	return nil
}

// TNorm returns the set a AND b.
func (f Family) TNorm(a, b *Set) (*Set, error) {
	if err := f.check(a, b); err != nil {
		return nil, err
	}
	return NewSet(fmt.Sprintf("%s.tnorm(%s, %s)", f, a.name, b.name),
		TNormExpr{Family: f, Left: a.expr, Right: b.expr})
}

// TConorm returns the set a OR b.
func (f Family) TConorm(a, b *Set) (*Set, error) {
	if err := f.check(a, b); err != nil {
		return nil, err
	}
	return NewSet(fmt.Sprintf("%s.tconorm(%s, %s)", f, a.name, b.name),
		TConormExpr{Family: f, Left: a.expr, Right: b.expr})
}

// Complement returns the set NOT a.
func (f Family) Complement(a *Set) (*Set, error) {
	if err := f.check(a); err != nil {
		return nil, err
	}
	return NewSet(fmt.Sprintf("%s.complement(%s)", f, a.name),
		ComplementExpr{Family: f, Arg: a.expr})
}

func standardComplement(a float64) float64 { return 1 - a }

func probabilisticSum(a, b float64) float64 { return a + b - a*b }

var minMaxOps = Operators{
	TNorm:      math.Min,
	TConorm:    math.Max,
	Complement: standardComplement,
}

var algebraicOps = Operators{
	TNorm:      func(a, b float64) float64 { return a * b },
	TConorm:    probabilisticSum,
	Complement: standardComplement,
}

var drasticOps = Operators{
	TNorm: func(a, b float64) float64 {
		switch {
		case a == 1:
			return b
		case b == 1:
			return a
		default:
			return 0
		}
	},
	TConorm: func(a, b float64) float64 {
		switch {
		case a == 0:
			return b
		case b == 0:
			return a
		default:
			return 1
		}
	},
	Complement: standardComplement,
}

func duboisPradeOps(p float64) (Operators, error) {
	if math.IsNaN(p) || p <= 0 || p > 1 {
		return Operators{}, fmt.Errorf("p=%v must lie in (0,1]: %w", p, ErrInvalidParameter)
	}
	return Operators{
		TNorm: func(a, b float64) float64 {
			return a * b / math.Max(math.Max(a, b), p)
		},
		TConorm: func(a, b float64) float64 {
			na, nb := 1-a, 1-b
			return 1 - na*nb/math.Max(math.Max(na, nb), p)
		},
		Complement: standardComplement,
	}, nil
}

func yagerOps(p float64) (Operators, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return Operators{}, fmt.Errorf("p=%v must be positive: %w", p, ErrInvalidParameter)
	}
	return Operators{
		TNorm: func(a, b float64) float64 {
			return math.Max(0, 1-math.Pow(math.Pow(1-a, p)+math.Pow(1-b, p), 1/p))
		},
		TConorm: func(a, b float64) float64 {
			return math.Min(1, math.Pow(math.Pow(a, p)+math.Pow(b, p), 1/p))
		},
		Complement: func(a float64) float64 {
			return math.Pow(1-math.Pow(a, p), 1/p)
		},
	}, nil
}

func schweizerSklarOps(p float64) (Operators, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return Operators{}, fmt.Errorf("p=%v must be positive: %w", p, ErrInvalidParameter)
	}
	return Operators{
		TNorm: func(a, b float64) float64 {
			na, nb := math.Pow(1-a, p), math.Pow(1-b, p)
			return 1 - math.Pow(na+nb-na*nb, 1/p)
		},
		TConorm: func(a, b float64) float64 {
			pa, pb := math.Pow(a, p), math.Pow(b, p)
			return math.Pow(pa+pb-pa*pb, 1/p)
		},
		Complement: standardComplement,
	}, nil
}
