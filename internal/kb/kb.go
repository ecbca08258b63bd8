// Package kb loads the knowledge base of the classifier: fuzzy variables
// with their physical scales, and the rule set that relates them.
//
// Both documents are JSON (a YAML superset parse is used so that key order
// is preserved). Variables are declared as
//
//	"ABT": {
//		"Tipo": "Cuantitativa",
//		"Dominio": [-1.0, 5.33],
//		"Escala": {"Tipo": "Exponencial", "Base": 2, "Constante": 0.75},
//		"Etiquetas": {"0a1.5": [-1, 1], "1.5a3": [1, 2], ...}
//	}
//
// and rule sets as
//
//	{
//		"a_variables": ["ABT", "APP", "PER"],
//		"c_variable": "Zona",
//		"rules": {"r1": {"antecedentes": {"ABT": "0a1.5"}, "consecuente": {"Zona": "desierto"}}}
//	}
package kb

import (
	"fmt"
	"os"
	"time"

	"bioclas/internal/fuzzy"
	"bioclas/internal/logging"
)

// KnowledgeBase is a loaded variable registry plus the FIS built from the
// rule set. It is immutable once returned.
type KnowledgeBase struct {
	Variables *Variables
	FIS       *fuzzy.FIS

	VariablesPath string
	RulesPath     string
	LoadedAt      time.Time
}

// Load reads both definition files and builds a fresh knowledge base.
func Load(variablesPath, rulesPath string) (*KnowledgeBase, error) {
	timer := logging.StartTimer(logging.CategoryKB, "kb.Load")
	defer timer.Stop()

	vars, err := LoadVariables(variablesPath)
	if err != nil {
		return nil, err
	}

	rf, err := os.Open(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer rf.Close()
	fis, err := ParseRuleSet(rf, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rulesPath, err)
	}

	logging.KB("loaded %d variables and %d rules (consequent %s)",
		vars.Len(), len(fis.Rules()), fis.Consequent().Name())
	return &KnowledgeBase{
		Variables:     vars,
		FIS:           fis,
		VariablesPath: variablesPath,
		RulesPath:     rulesPath,
		LoadedAt:      time.Now(),
	}, nil
}

// LoadVariables reads a variable definition file on its own.
func LoadVariables(path string) (*Variables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open variables: %w", err)
	}
	defer f.Close()
	vars, err := ParseVariables(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// Antecedents returns the FIS input variables in rule-set order.
func (k *KnowledgeBase) Antecedents() []*fuzzy.Variable { return k.FIS.AntecedentVariables() }

// Consequent returns the FIS output variable.
func (k *KnowledgeBase) Consequent() *fuzzy.Variable { return k.FIS.Consequent() }

// Scale returns the physical scale of a variable.
func (k *KnowledgeBase) Scale(name string) Scale { return k.Variables.Scale(name) }
