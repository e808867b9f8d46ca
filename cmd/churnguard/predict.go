package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"churnguard/form"
	"churnguard/ml"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var predictSets []string

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Prompt for customer details and print the verdict",
	Long: `Asks for every field of the schema in order. Press enter to keep the
default shown in brackets. With --set, no prompt is shown and a single
verdict is printed.`,
	Example: `  churnguard predict
  churnguard predict --set tenure=5 --set contract="Month-to-month"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runPredict(ctx, cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout(), predictSets)
	},
}

func init() {
	predictCmd.Flags().StringArrayVar(&predictSets, "set", nil, "Field value as name=value (repeatable); skips prompting")
}

func runPredict(ctx context.Context, cfg *Config, logger *zap.Logger, in io.Reader, out io.Writer, sets []string) error {
	predictor, err := loadPredictor(cfg, logger)
	if err != nil {
		return err
	}

	if len(sets) > 0 {
		record, err := recordFromSets(predictor.Schema(), sets)
		if err != nil {
			return err
		}
		verdict, err := predictor.Predict(ctx, record)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderVerdict(verdict))
		return nil
	}

	prompter := form.NewPrompter(in, out)
	for {
		record, err := prompter.Collect(ctx, predictor.Schema())
		if err != nil {
			return endOfInput(err)
		}

		verdict, err := predictor.Predict(ctx, record)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Debug("prediction failed", zap.Error(err))
			fmt.Fprintln(out, errorStyle.Render(describe(err)))
		} else {
			fmt.Fprintln(out, renderVerdict(verdict))
		}

		again, err := prompter.Confirm("Predict again?", true)
		if err != nil {
			return endOfInput(err)
		}
		if !again {
			return nil
		}
	}
}

// endOfInput treats a closed stdin as a normal exit.
func endOfInput(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}

func recordFromSets(schema *ml.Schema, sets []string) (ml.Record, error) {
	values := make(map[string]interface{}, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q: expected name=value", s)
		}
		if _, known := schema.Field(name); !known {
			return nil, fmt.Errorf("--set %q: unknown field %q", s, name)
		}
		values[name] = value
	}
	return form.FromMap(schema, values)
}

func renderVerdict(v *ml.Verdict) string {
	text := v.Message()
	if c := v.ConfidenceText(); c != "" {
		text += " (Confidence: " + c + ")"
	}
	if v.Churn {
		return warningStyle.Render(text)
	}
	return successStyle.Render(text)
}
