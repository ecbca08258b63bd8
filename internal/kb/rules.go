package kb

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"bioclas/internal/fuzzy"
)

const (
	keyAntecedentVars = "a_variables"
	keyConsequentVar  = "c_variable"
	keyRules          = "rules"
	keyAntecedents    = "antecedentes"
	keyConsequent     = "consecuente"
)

// ParseRuleSet reads a rule-set document and builds a FIS over vars.
// Rules are added in file order.
func ParseRuleSet(r io.Reader, vars *Variables) (*fuzzy.FIS, error) {
	root, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("rule set must be a mapping: %w", ErrDefinition)
	}

	names := field(root, keyAntecedentVars)
	if names == nil || names.Kind != yaml.SequenceNode || len(names.Content) == 0 {
		return nil, fmt.Errorf("%s must be a non-empty list: %w", keyAntecedentVars, ErrDefinition)
	}
	antecedents := make([]*fuzzy.Variable, 0, len(names.Content))
	for _, n := range names.Content {
		v := vars.Get(n.Value)
		if v == nil {
			return nil, fmt.Errorf("%s: unknown variable %q (line %d): %w", keyAntecedentVars, n.Value, n.Line, ErrDefinition)
		}
		antecedents = append(antecedents, v)
	}

	cname := field(root, keyConsequentVar)
	if cname == nil || cname.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("missing %s: %w", keyConsequentVar, ErrDefinition)
	}
	consequent := vars.Get(cname.Value)
	if consequent == nil {
		return nil, fmt.Errorf("%s: unknown variable %q: %w", keyConsequentVar, cname.Value, ErrDefinition)
	}

	fis, err := fuzzy.New(antecedents, consequent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDefinition, err)
	}

	rules := field(root, keyRules)
	if rules == nil || rules.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s must be a mapping: %w", keyRules, ErrDefinition)
	}
	for i := 0; i+1 < len(rules.Content); i += 2 {
		name, body := rules.Content[i].Value, rules.Content[i+1]
		ants, cset, err := parseRule(name, body, consequent.Name())
		if err != nil {
			return nil, err
		}
		if err := fis.AddRule(name, ants, cset); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDefinition, err)
		}
	}
	return fis, nil
}

func parseRule(name string, body *yaml.Node, consequent string) (map[string]string, string, error) {
	if body.Kind != yaml.MappingNode {
		return nil, "", fmt.Errorf("rule %q must be a mapping (line %d): %w", name, body.Line, ErrDefinition)
	}
	antNode := field(body, keyAntecedents)
	if antNode == nil || antNode.Kind != yaml.MappingNode {
		return nil, "", fmt.Errorf("rule %q: %s must be a mapping: %w", name, keyAntecedents, ErrDefinition)
	}
	ants := make(map[string]string, len(antNode.Content)/2)
	for i := 0; i+1 < len(antNode.Content); i += 2 {
		v := antNode.Content[i].Value
		if _, dup := ants[v]; dup {
			return nil, "", fmt.Errorf("rule %q: variable %q used twice: %w", name, v, ErrDefinition)
		}
		ants[v] = antNode.Content[i+1].Value
	}

	conNode := field(body, keyConsequent)
	if conNode == nil || conNode.Kind != yaml.MappingNode || len(conNode.Content) != 2 {
		return nil, "", fmt.Errorf("rule %q: %s must name exactly one variable: %w", name, keyConsequent, ErrDefinition)
	}
	if got := conNode.Content[0].Value; got != consequent {
		return nil, "", fmt.Errorf("rule %q: consequent variable %q, want %q: %w", name, got, consequent, ErrDefinition)
	}
	return ants, conNode.Content[1].Value, nil
}
