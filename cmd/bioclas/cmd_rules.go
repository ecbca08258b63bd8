package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"bioclas/internal/kb"
)

var rulesRaw bool

// rulesCmd prints the rule base as a table
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the rule base as a table",
	Long: `Loads the knowledge base and prints one row per rule with the set each
antecedent variable must be in and the consequent set it implies.
Variables a rule does not mention are left blank.

The table is rendered for the terminal; --raw prints the markdown.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesRaw, "raw", false, "Print markdown without rendering")
}

func runRules(cmd *cobra.Command, args []string) error {
	k, err := loadKnowledge()
	if err != nil {
		return err
	}
	return printRules(cmd.OutOrStdout(), k, rulesRaw)
}

func printRules(w io.Writer, k *kb.KnowledgeBase, raw bool) error {
	md := rulesMarkdown(k)
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render rules: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func rulesMarkdown(k *kb.KnowledgeBase) string {
	ants := k.Antecedents()
	cons := k.Consequent()

	var b strings.Builder
	names := make([]string, len(ants))
	for i, v := range ants {
		names[i] = v.Name()
	}
	fmt.Fprintf(&b, "# %s → %s\n\n", strings.Join(names, ", "), cons.Name())
	fmt.Fprintf(&b, "%d rules over %s.\n\n", len(k.FIS.Rules()), k.RulesPath)

	b.WriteString("| Rule |")
	for _, n := range names {
		b.WriteString(" " + n + " |")
	}
	b.WriteString(" " + cons.Name() + " |\n|---|")
	b.WriteString(strings.Repeat("---|", len(names)+1))
	b.WriteString("\n")

	for _, r := range k.FIS.Rules() {
		sets := make(map[string]string, len(names))
		for _, c := range r.Antecedents() {
			sets[c.Variable.Name()] = c.Set
		}
		b.WriteString("| " + r.Name() + " |")
		for _, n := range names {
			b.WriteString(" " + sets[n] + " |")
		}
		b.WriteString(" " + r.Consequent().Set + " |\n")
	}
	return b.String()
}
