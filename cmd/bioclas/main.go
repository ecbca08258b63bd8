package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bioclas/internal/config"
	"bioclas/internal/holdridge"
	"bioclas/internal/kb"
	"bioclas/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration
	modeFlag   string

	// Resolved in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bioclas",
	Short: "bioclas - fuzzy Holdridge life-zone classifier",
	Long: `bioclas assigns Holdridge life zones to points described by their
annual biotemperature (ABT), annual precipitation (APP) and potential
evapotranspiration ratio (PER).

Variables and rules are loaded from declarative definition files and
evaluated with a Mamdani or Larsen fuzzy inference system. Every point
receives its three strongest zones and a blended colour.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.DebugMode = true
			loaded.Logging.Level = "debug"
		}
		if modeFlag != "" {
			loaded.Inference.Mode = modeFlag
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Initialize(loaded.Logging.ToLogging()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		logging.BootDebug("config %s resolved (mode=%s, variables=%s, rules=%s)",
			configPath, cfg.Inference.Mode, cfg.Knowledge.VariablesPath, cfg.Knowledge.RulesPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bioclas.yaml", "Config file (YAML, or TOML by extension)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging for every category")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Abort after this long (0 = no limit)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Inference mode: mamdani or larsen (overrides config)")

	rootCmd.AddCommand(zonifyCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(indicatorsCmd)
	rootCmd.AddCommand(variablesCmd)
	rootCmd.AddCommand(membershipCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext is cancelled on SIGINT/SIGTERM and after --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

func loadKnowledge() (*kb.KnowledgeBase, error) {
	return kb.Load(cfg.Knowledge.VariablesPath, cfg.Knowledge.RulesPath)
}

func newClassifier(k *kb.KnowledgeBase) (*holdridge.Classifier, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	return holdridge.NewClassifier(k, mode)
}

func loadClassifier() (*holdridge.Classifier, error) {
	k, err := loadKnowledge()
	if err != nil {
		return nil, err
	}
	return newClassifier(k)
}
