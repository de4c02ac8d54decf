// resistsim simulates the spread of a sexually transmitted infection,
// including the emergence of antibiotic resistance, through a synthetic
// population. The stochastic agent-based model is the primary engine; the
// deterministic compartmental model and the contact-network model are
// available as companion commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"resistsim/internal/config"
	"resistsim/internal/results"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "resistsim",
	Short: "STI transmission and antibiotic-resistance simulator",
	Long: `resistsim simulates the spread of a sexually transmitted infection and
the emergence of antibiotic resistance through a synthetic population with
explicit demographics, partnership dynamics, and disease progression.

Models:
  run      stochastic agent-based population model (the core)
  batch    multi-seed parallel studies of the stochastic model
  ode      deterministic two-strain, two-group compartmental model
  network  contact-network epidemic model over a fixed graph`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := zapcore.InfoLevel
		if !verbose {
			switch cfg.Logging.Level {
			case "debug":
				level = zapcore.DebugLevel
			case "warn":
				level = zapcore.WarnLevel
			case "error":
				level = zapcore.ErrorLevel
			}
		} else {
			level = zapcore.DebugLevel
		}

		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "resistsim.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite results database (empty disables persistence)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// saveSeries persists one run's output if a results database is configured,
// returning the stored run ID ("" when persistence is disabled).
func saveSeries(model string, seed int64, infected, resistant []int) (string, error) {
	if dbPath == "" {
		return "", nil
	}
	store, err := results.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	snapshot, err := configSnapshot()
	if err != nil {
		return "", err
	}
	id, err := store.SaveRun(model, seed, snapshot, infected, resistant)
	if err != nil {
		return "", err
	}
	logger.Info("run persisted", zap.String("run_id", id), zap.String("model", model))
	return id, nil
}

func configSnapshot() (string, error) {
	data, err := marshalConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot config: %w", err)
	}
	return data, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
