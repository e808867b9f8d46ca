// Command churnguard serves a customer churn form backed by a pre-trained model.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"churnguard/form"
	"churnguard/logging"
	"churnguard/ml"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg    *Config
	logger *zap.Logger
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

var rootCmd = &cobra.Command{
	Use:   "churnguard",
	Short: "Customer churn prediction from a pre-trained model",
	Long: `churnguard collects customer attributes, encodes them the way the model
was trained, and reports whether the customer is likely to churn.

The model, scaler and schema are read once at startup from the artifact
directory. Training happens elsewhere.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, required := resolveConfigPath(configPath)
		c, err := loadConfig(path, required)
		if err != nil {
			return err
		}
		if verbose {
			c.Log.Level = "debug"
		}
		l, err := logging.New(c.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, logger = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default config.yaml, or $"+configEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(describe(err)))
		os.Exit(1)
	}
}

// loadPredictor reads the configured artifact. A failure here is terminal.
func loadPredictor(cfg *Config, logger *zap.Logger) (*ml.Predictor, error) {
	artifact, err := ml.LoadArtifact(cfg.Artifact.ArtifactConfig)
	if err != nil {
		return nil, err
	}
	logger.Info("artifact loaded",
		zap.Strings("sources", artifact.Sources),
		zap.Int("expected_width", artifact.ExpectedWidth()))
	return ml.NewPredictor(artifact, ml.WithLogger(logger))
}

// describe turns an error into the sentence shown to the user.
func describe(err error) string {
	var (
		artifactErr *ml.ArtifactError
		fieldErrs   form.Errors
		mismatch    *ml.FeatureMismatchError
	)
	switch {
	case errors.As(err, &artifactErr):
		return "Cannot start: " + artifactErr.Error()
	case errors.As(err, &fieldErrs):
		return "Invalid input: " + fieldErrs.Error()
	case errors.As(err, &mismatch):
		return "Cannot predict: " + mismatch.Error() + ". The schema does not match the loaded model."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return "Error: " + err.Error()
	}
}
