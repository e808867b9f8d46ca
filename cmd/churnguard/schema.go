package main

import (
	"fmt"
	"io"

	"churnguard/ml"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the encoding strategy and ordered feature columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		predictor, err := loadPredictor(cfg, logger)
		if err != nil {
			return err
		}
		printSchema(cmd.OutOrStdout(), predictor)
		return nil
	},
}

func printSchema(out io.Writer, p *ml.Predictor) {
	columns := p.Columns()
	fmt.Fprintln(out, headerStyle.Render("Feature layout"))
	fmt.Fprintf(out, "strategy:       %s\n", p.Strategy())
	fmt.Fprintf(out, "expected width: %d\n", p.ExpectedWidth())
	fmt.Fprintf(out, "columns:        %d\n", len(columns))
	for i, c := range columns {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, c)
	}
	if len(columns) != p.ExpectedWidth() {
		fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf(
			"schema produces %d columns but the model expects %d; every prediction will fail",
			len(columns), p.ExpectedWidth())))
	}
}
