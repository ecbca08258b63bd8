package fuzzy

import (
	"fmt"
	"strings"
)

// Clause is one "variable IS set" proposition.
type Clause struct {
	Variable *Variable
	Set      string
}

func (c Clause) String() string { return c.Variable.name + " IS " + c.Set }

func (c Clause) validate() error {
	if c.Variable == nil {
		return fmt.Errorf("clause on set %q has no variable: %w", c.Set, ErrInvalidParameter)
	}
	if !c.Variable.HasSet(c.Set) {
		return fmt.Errorf("variable %q has no set %q: %w", c.Variable.name, c.Set, ErrNotFound)
	}
	return nil
}

// Rule is a conjunction of antecedent clauses implying one consequent
// clause. Rules are immutable.
type Rule struct {
	name        string
	antecedents []Clause
	consequent  Clause
}

// NewRule validates that every clause references an existing set and that
// no variable appears twice among the antecedents.
func NewRule(name string, antecedents []Clause, consequent Clause) (*Rule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("rule name %q: %w", name, ErrInvalidName)
	}
	if len(antecedents) == 0 {
		return nil, fmt.Errorf("rule %q has no antecedents: %w", name, ErrInvalidValue)
	}
	seen := make(map[string]bool, len(antecedents))
	for _, c := range antecedents {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("rule %q antecedent: %w", name, err)
		}
		if seen[c.Variable.name] {
			return nil, fmt.Errorf("rule %q uses variable %q twice: %w", name, c.Variable.name, ErrDuplicateName)
		}
		seen[c.Variable.name] = true
	}
	if err := consequent.validate(); err != nil {
		return nil, fmt.Errorf("rule %q consequent: %w", name, err)
	}
	return &Rule{
		name:        name,
		antecedents: append([]Clause(nil), antecedents...),
		consequent:  consequent,
	}, nil
}

func (r *Rule) Name() string { return r.name }

// Antecedents returns the antecedent clauses in evaluation order.
func (r *Rule) Antecedents() []Clause { return append([]Clause(nil), r.antecedents...) }

func (r *Rule) Consequent() Clause { return r.consequent }

func (r *Rule) String() string {
	parts := make([]string, len(r.antecedents))
	for i, c := range r.antecedents {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s: IF %s THEN %s", r.name, strings.Join(parts, " AND "), r.consequent)
}

// Firing is the outcome of evaluating one rule.
type Firing struct {
	Rule     string
	Variable *Variable
	Set      string
	Degree   float64
}

// Eval computes the firing degree of the rule: the mode's t-norm folded over
// the antecedent degrees in order, starting from 1.
func (r *Rule) Eval(inputs map[string]float64, mode Mode) (Firing, error) {
	if err := mode.Valid(); err != nil {
		return Firing{}, err
	}
	degree := 1.0
	for _, c := range r.antecedents {
		x, ok := inputs[c.Variable.name]
		if !ok {
			return Firing{}, fmt.Errorf("rule %q needs variable %q: %w", r.name, c.Variable.name, ErrMissingInput)
		}
		dof, err := c.Variable.DOF(c.Set, x)
		if err != nil {
			return Firing{}, fmt.Errorf("rule %q: %w", r.name, err)
		}
		degree = mode.TNorm(degree, dof)
	}
	return Firing{
		Rule:     r.name,
		Variable: r.consequent.Variable,
		Set:      r.consequent.Set,
		Degree:   degree,
	}, nil
}

