package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"bioclas/internal/fuzzy"
	"bioclas/internal/holdridge"
)

var (
	evalABT     float64
	evalAPP     float64
	evalPER     float64
	evalExplain bool
)

// evalCmd classifies a single point
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Classify a single point",
	Long: `Classifies one point given its Holdridge indicators and prints every
fired life zone with its degree and the blended colour.

PER is derived from ABT and APP when not given.

Examples:
  bioclas eval --abt 12 --app 1000
  bioclas eval --abt 24 --app 2500 --mode larsen --explain`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().Float64Var(&evalABT, "abt", math.NaN(), "Annual biotemperature (°C)")
	evalCmd.Flags().Float64Var(&evalAPP, "app", math.NaN(), "Annual precipitation (mm)")
	evalCmd.Flags().Float64Var(&evalPER, "per", math.NaN(), "Potential evapotranspiration ratio")
	evalCmd.Flags().BoolVar(&evalExplain, "explain", false, "Show every rule that fired")
	evalCmd.MarkFlagRequired("abt")
}

func runEval(cmd *cobra.Command, args []string) error {
	c, err := loadClassifier()
	if err != nil {
		return err
	}
	in := holdridge.Indicators{ABT: evalABT, APP: evalAPP, PER: evalPER}
	cls, err := c.Classify(in)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	printClassification(cmd.OutOrStdout(), c, in, cls)

	if evalExplain {
		firings, err := c.Explain(in)
		if err != nil {
			return err
		}
		printFirings(cmd.OutOrStdout(), c.KnowledgeBase().FIS, firings)
	}
	return nil
}

func printClassification(w io.Writer, c *holdridge.Classifier, in holdridge.Indicators, cls *holdridge.Classification) {
	if full, err := in.Complete(); err == nil {
		in = full
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headingStyle.Render("Point"))
	fmt.Fprintf(&b, "  %s  %s\n", in, mutedStyle.Render("mode="+c.Mode().String()))

	names := make([]string, 0, len(cls.Inputs))
	for name := range cls.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render(name+" →"), fmt.Sprintf("%.4f", cls.Inputs[name]))
	}

	fmt.Fprintf(&b, "\n%s\n", headingStyle.Render("Life zones"))
	zones := make([]holdridge.Zone, 0, len(cls.Degrees))
	for name, d := range cls.Degrees {
		zones = append(zones, holdridge.Zone{Name: name, Degree: d})
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Degree != zones[j].Degree {
			return zones[i].Degree > zones[j].Degree
		}
		return zones[i].Name < zones[j].Name
	})
	top := make(map[string]bool, len(cls.Zones))
	for _, z := range cls.Zones {
		top[z.Name] = true
	}
	for _, z := range zones {
		marker := " "
		if top[z.Name] {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s %.3f  %s\n", marker, bar(z.Degree, 20), z.Degree, z.Name)
	}

	fmt.Fprintf(&b, "\n%s\n  %s", headingStyle.Render("Colour"), swatch(cls.Color))
	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func printFirings(w io.Writer, fis *fuzzy.FIS, firings []fuzzy.Firing) {
	fired := 0
	for _, fr := range firings {
		if fr.Degree <= 0 {
			continue
		}
		fired++
		fmt.Fprintf(w, "%s  %s\n", headingStyle.Render(fmt.Sprintf("%.3f", fr.Degree)), fis.Rule(fr.Rule))
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d of %d rules fired", fired, len(firings))))
}
