package fuzzy

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// FIS is a rule base over a fixed set of antecedent variables and a single
// consequent variable.
//
// A FIS has two phases. While building, AddRule may be called from one
// goroutine. The first Eval freezes the FIS and every variable it owns;
// afterwards AddRule fails with ErrFrozen and Eval may run concurrently.
type FIS struct {
	antecedents []*Variable
	byName      map[string]*Variable
	consequent  *Variable

	rules     []*Rule
	ruleIndex map[string]int

	frozen atomic.Bool
}

// New creates an empty rule base. Variable names must be unique across the
// antecedents and the consequent.
func New(antecedents []*Variable, consequent *Variable) (*FIS, error) {
	if len(antecedents) == 0 {
		return nil, fmt.Errorf("fis needs at least one antecedent variable: %w", ErrInvalidParameter)
	}
	if consequent == nil {
		return nil, fmt.Errorf("fis needs a consequent variable: %w", ErrInvalidParameter)
	}
	f := &FIS{
		byName:     make(map[string]*Variable, len(antecedents)),
		consequent: consequent,
		ruleIndex:  make(map[string]int),
	}
	for _, v := range antecedents {
		if v == nil {
			return nil, fmt.Errorf("fis: nil antecedent variable: %w", ErrInvalidParameter)
		}
		if _, dup := f.byName[v.name]; dup || v.name == consequent.name {
			return nil, fmt.Errorf("fis: variable %q registered twice: %w", v.name, ErrDuplicateName)
		}
		f.byName[v.name] = v
		f.antecedents = append(f.antecedents, v)
	}
	return f, nil
}

// AddRule registers name: IF var1 IS set1 AND ... THEN consequent IS set.
// Antecedent clauses are ordered by antecedent variable registration order.
//
// A rule with an existing name replaces the previous rule in place, keeping
// its evaluation position.
func (f *FIS) AddRule(name string, antecedents map[string]string, consequentSet string) error {
	if f.frozen.Load() {
		return fmt.Errorf("fis: adding rule %q: %w", name, ErrFrozen)
	}
	if len(antecedents) == 0 {
		return fmt.Errorf("rule %q has no antecedents: %w", name, ErrInvalidValue)
	}
	for varName := range antecedents {
		if _, ok := f.byName[varName]; !ok {
			return fmt.Errorf("rule %q: antecedent variable %q is not registered: %w: %w",
				name, varName, ErrInvalidValue, ErrNotFound)
		}
	}
	clauses := make([]Clause, 0, len(antecedents))
	for _, v := range f.antecedents {
		set, ok := antecedents[v.name]
		if !ok {
			continue
		}
		if !v.HasSet(set) {
			return fmt.Errorf("rule %q: variable %q has no set %q: %w: %w",
				name, v.name, set, ErrInvalidValue, ErrNotFound)
		}
		clauses = append(clauses, Clause{Variable: v, Set: set})
	}
	if !f.consequent.HasSet(consequentSet) {
		return fmt.Errorf("rule %q: consequent variable %q has no set %q: %w: %w",
			name, f.consequent.name, consequentSet, ErrInvalidValue, ErrNotFound)
	}
	r, err := NewRule(name, clauses, Clause{Variable: f.consequent, Set: consequentSet})
	if err != nil {
		return err
	}
	if i, ok := f.ruleIndex[name]; ok {
		f.rules[i] = r
		return nil
	}
	f.ruleIndex[name] = len(f.rules)
	f.rules = append(f.rules, r)
	return nil
}

func (f *FIS) freeze() {
	if f.frozen.Swap(true) {
		return
	}
	for _, v := range f.antecedents {
		v.freeze()
	}
	f.consequent.freeze()
}

// Frozen reports whether the FIS has evaluated at least once.
func (f *FIS) Frozen() bool { return f.frozen.Load() }

// Explain evaluates every rule in registration order and returns each
// firing, including those with degree 0.
func (f *FIS) Explain(inputs map[string]float64, mode Mode) ([]Firing, error) {
	if err := mode.Valid(); err != nil {
		return nil, err
	}
	f.freeze()
	firings := make([]Firing, 0, len(f.rules))
	for _, r := range f.rules {
		fr, err := r.Eval(inputs, mode)
		if err != nil {
			return nil, err
		}
		firings = append(firings, fr)
	}
	return firings, nil
}

// Eval evaluates the rule base and aggregates firing degrees per consequent
// set: running max under Mamdani, probabilistic sum under Larsen. Sets that
// never fire above zero are absent from the result.
func (f *FIS) Eval(inputs map[string]float64, mode Mode) (*Variable, map[string]float64, error) {
	firings, err := f.Explain(inputs, mode)
	if err != nil {
		return nil, nil, err
	}
	return f.consequent, Aggregate(firings, mode), nil
}

// Aggregate folds firings into a degree map with the mode's t-conorm.
// Zero-degree firings are skipped.
func Aggregate(firings []Firing, mode Mode) map[string]float64 {
	degrees := make(map[string]float64)
	for _, fr := range firings {
		if fr.Degree <= 0 {
			continue
		}
		degrees[fr.Set] = mode.TConorm(degrees[fr.Set], fr.Degree)
	}
	return degrees
}

func (f *FIS) Consequent() *Variable { return f.consequent }

// AntecedentVariables returns the antecedent variables in registration order.
func (f *FIS) AntecedentVariables() []*Variable {
	return append([]*Variable(nil), f.antecedents...)
}

// Antecedent returns the named antecedent variable, or nil.
func (f *FIS) Antecedent(name string) *Variable { return f.byName[name] }

// Rules returns the rules in evaluation order.
func (f *FIS) Rules() []*Rule { return append([]*Rule(nil), f.rules...) }

// Rule returns the named rule, or nil.
func (f *FIS) Rule(name string) *Rule {
	if i, ok := f.ruleIndex[name]; ok {
		return f.rules[i]
	}
	return nil
}

// RuleNames returns the rule names sorted alphabetically.
func (f *FIS) RuleNames() []string {
	names := make([]string, 0, len(f.rules))
	for _, r := range f.rules {
		names = append(names, r.name)
	}
	sort.Strings(names)
	return names
}
