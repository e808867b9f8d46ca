package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// churnSchema is the twelve-column layout of the lightweight churn form.
func churnSchema() *Schema {
	s := &Schema{
		Strategy: StrategyTable,
		Fields: []Field{
			{Name: "tenure", Type: FieldInteger, Min: ptr(0), Max: ptr(72), Default: 12},
			{Name: "monthlycharges", Type: FieldNumber, Min: ptr(0), Default: 70.0},
			{Name: "contract", Type: FieldChoice, Choices: []string{"Month-to-month", "One year", "Two year"}, Encoding: EncodingOneHot, DropFirst: true},
			{Name: "paymentmethod", Type: FieldChoice, Choices: []string{"Electronic check", "Mailed check", "Bank transfer (automatic)", "Credit card (automatic)"}, Encoding: EncodingOneHot, DropFirst: true},
			{Name: "internetservice", Type: FieldChoice, Choices: []string{"DSL", "Fiber optic", "No"}, Encoding: EncodingOneHot, DropFirst: true},
			{Name: "techsupport", Type: FieldChoice, Choices: []string{"Yes", "No"}, Encoding: EncodingBinary, Positive: "Yes"},
			{Name: "streamingtv", Type: FieldChoice, Choices: []string{"Yes", "No"}, Encoding: EncodingBinary, Positive: "Yes"},
			{Name: "paperlessbilling", Type: FieldChoice, Choices: []string{"Yes", "No"}, Encoding: EncodingBinary, Positive: "Yes"},
		},
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

func churnRecord() Record {
	return Record{
		"tenure":           12.0,
		"monthlycharges":   70.0,
		"contract":         "Month-to-month",
		"paymentmethod":    "Electronic check",
		"internetservice":  "DSL",
		"techsupport":      "No",
		"streamingtv":      "No",
		"paperlessbilling": "No",
	}
}

func writeJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func zeros(n int) []float64 { return make([]float64, n) }

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

const churnSchemaYAML = `strategy: table
fields:
  - name: tenure
    type: integer
    min: 0
    max: 72
    default: 12
  - name: monthlycharges
    type: number
    min: 0
    default: 70.0
  - name: contract
    type: choice
    choices: [Month-to-month, One year, Two year]
    encoding: onehot
    drop_first: true
  - name: paymentmethod
    type: choice
    choices: [Electronic check, Mailed check, Bank transfer (automatic), Credit card (automatic)]
    encoding: onehot
    drop_first: true
  - name: internetservice
    type: choice
    choices: [DSL, Fiber optic, "No"]
    encoding: onehot
    drop_first: true
  - name: techsupport
    type: choice
    choices: ["Yes", "No"]
    encoding: binary
    positive: "Yes"
  - name: streamingtv
    type: choice
    choices: ["Yes", "No"]
    encoding: binary
    positive: "Yes"
  - name: paperlessbilling
    type: choice
    choices: ["Yes", "No"]
    encoding: binary
    positive: "Yes"
`

// writeArtifactDir lays out a complete twelve-column artifact and returns its config.
func writeArtifactDir(t *testing.T) ArtifactConfig {
	t.Helper()
	dir := t.TempDir()
	writeJSON(t, dir, "model.json", map[string]interface{}{
		"format_version": 1,
		"type":           "logistic_regression",
		"classes":        []int{0, 1},
		"coef":           zeros(12),
		"intercept":      0.5,
	})
	writeJSON(t, dir, "scaler.json", map[string]interface{}{
		"format_version": 1,
		"type":           "standard",
		"mean":           zeros(12),
		"scale":          ones(12),
	})
	writeFile(t, dir, "schema.yaml", churnSchemaYAML)
	return ArtifactConfig{Dir: dir, Model: "model.json", Scaler: "scaler.json", Schema: "schema.yaml"}
}
