package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bioclas/internal/fuzzy"
	"bioclas/internal/kb"
)

var membershipPhysical bool

// variablesCmd lists the loaded linguistic variables
var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the linguistic variables and their sets",
	Long: `Loads the variable definitions and prints each variable's kind, domain,
scale and fuzzy sets. Quantitative variables also report how far their
sets are from summing to one across the domain.`,
	Args: cobra.NoArgs,
	RunE: runVariables,
}

// membershipCmd prints the degree of every set of a variable at one value
var membershipCmd = &cobra.Command{
	Use:   "membership <variable> <value>",
	Short: "Show the membership degree of a value in every set of a variable",
	Long: `Prints the degree of membership of value in each fuzzy set of the
variable. With --physical the value is first mapped through the
variable's scale, so APP can be given in millimetres.

Examples:
  bioclas membership ABT 2.3
  bioclas membership APP 1000 --physical`,
	Args: cobra.ExactArgs(2),
	RunE: runMembership,
}

func init() {
	membershipCmd.Flags().BoolVar(&membershipPhysical, "physical", false, "Value is in physical units")
}

func loadVariables() (*kb.Variables, error) {
	k, err := loadKnowledge()
	if err == nil {
		return k.Variables, nil
	}
	// a broken rule file should not hide the variables
	vs, verr := kb.LoadVariables(cfg.Knowledge.VariablesPath)
	if verr != nil {
		return nil, verr
	}
	return vs, nil
}

func runVariables(cmd *cobra.Command, args []string) error {
	vs, err := loadVariables()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, name := range vs.Names() {
		v := vs.Get(name)
		scale := vs.Scale(name)
		fmt.Fprintf(w, "%s %s\n", headingStyle.Render(name), mutedStyle.Render(v.Kind().String()))
		if v.Kind() == fuzzy.Quantitative {
			fmt.Fprintf(w, "  domain   %s\n", v.Domain())
			fmt.Fprintf(w, "  scale    %s", scale)
			if scale.Kind == kb.Exponential {
				fmt.Fprintf(w, "  physical %s", scale.PhysicalDomain(v.Domain()))
			}
			fmt.Fprintln(w)
			dev, err := kb.PartitionDeviation(v, cfg.Inference.Step)
			if err != nil {
				return fmt.Errorf("variable %s: %w", name, err)
			}
			fmt.Fprintf(w, "  partition deviation %.2g\n", dev)
			for _, s := range v.Sets() {
				fmt.Fprintf(w, "    %s\n", s)
			}
		} else {
			for _, label := range v.SetNames() {
				c, _ := v.Color(label)
				fmt.Fprintf(w, "    %s  %s\n", swatch(c), label)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runMembership(cmd *cobra.Command, args []string) error {
	vs, err := loadVariables()
	if err != nil {
		return err
	}
	v := vs.Get(args[0])
	if v == nil {
		return fmt.Errorf("variable %q: %w (have %s)", args[0], fuzzy.ErrNotFound, strings.Join(vs.Names(), ", "))
	}
	if v.Kind() != fuzzy.Quantitative {
		return fmt.Errorf("variable %q is qualitative; its sets are point labels", args[0])
	}
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("value %q: %w", args[1], err)
	}
	if membershipPhysical {
		if x, err = vs.Scale(args[0]).Normalize(x); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s = %g %s\n", v.Name(), x, mutedStyle.Render("(domain "+v.Domain().String()+")"))
	for _, s := range v.Sets() {
		d := s.DOF(x)
		fmt.Fprintf(w, "  %s %.3f  %s\n", bar(d, 20), d, s.Name())
	}
	return nil
}
