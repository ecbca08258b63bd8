package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bioclas/internal/fuzzy"
	"bioclas/internal/kb"
)

var inferExplain bool

// inferCmd evaluates the raw rule base on domain-unit inputs
var inferCmd = &cobra.Command{
	Use:   "infer NAME=VALUE...",
	Short: "Evaluate the rule base directly on domain values",
	Long: `Evaluates the loaded rule base with inputs given in each variable's
domain units, without Holdridge scaling or clipping. This works with any
knowledge base, not only the life-zone one.

A quantitative consequent is defuzzified with inference.method and
inference.step; a qualitative one is blended into a colour.

Example:
  bioclas infer ABT=2.3 PER=0.5 --explain`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().BoolVar(&inferExplain, "explain", false, "Show every rule that fired")
}

func parseAssignments(args []string) (map[string]float64, error) {
	inputs := make(map[string]float64, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("input %q: want NAME=VALUE", arg)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", arg, err)
		}
		if _, dup := inputs[name]; dup {
			return nil, fmt.Errorf("input %q given twice", name)
		}
		inputs[name] = v
	}
	return inputs, nil
}

func runInfer(cmd *cobra.Command, args []string) error {
	inputs, err := parseAssignments(args)
	if err != nil {
		return err
	}
	k, err := loadKnowledge()
	if err != nil {
		return err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	return infer(cmd.OutOrStdout(), k, inputs, mode)
}

func infer(w io.Writer, k *kb.KnowledgeBase, inputs map[string]float64, mode fuzzy.Mode) error {
	for name := range inputs {
		if k.FIS.Antecedent(name) == nil {
			return fmt.Errorf("input %q is not an antecedent variable: %w", name, fuzzy.ErrNotFound)
		}
	}
	cons, degrees, err := k.FIS.Eval(inputs, mode)
	if err != nil {
		return err
	}

	labels := make([]string, 0, len(degrees))
	for label := range degrees {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if degrees[labels[i]] != degrees[labels[j]] {
			return degrees[labels[i]] > degrees[labels[j]]
		}
		return labels[i] < labels[j]
	})
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render(cons.Name()), mutedStyle.Render("mode="+mode.String()))
	for _, label := range labels {
		fmt.Fprintf(w, "  %s %.3f  %s\n", bar(degrees[label], 20), degrees[label], label)
	}

	switch cons.Kind() {
	case fuzzy.Qualitative:
		c, err := cons.DefuzzifyColor(degrees)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "colour %s\n", swatch(c))
	default:
		method, err := cfg.Method()
		if err != nil {
			return err
		}
		x, err := cons.Defuzzify(degrees, method, mode, cfg.Inference.Step)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %g", method, x)
		if scale := k.Scale(cons.Name()); scale.Kind == kb.Exponential {
			fmt.Fprintf(w, " (physical %g)", scale.Denormalize(x))
		}
		fmt.Fprintln(w)
	}

	if inferExplain {
		firings, err := k.FIS.Explain(inputs, mode)
		if err != nil {
			return err
		}
		printFirings(w, k.FIS, firings)
	}
	return nil
}
