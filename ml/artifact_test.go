package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArtifact(t *testing.T) {
	cfg := writeArtifactDir(t)
	artifact, err := LoadArtifact(cfg)
	require.NoError(t, err)

	assert.Equal(t, 12, artifact.ExpectedWidth())
	assert.IsType(t, &LogisticRegression{}, artifact.Model)
	assert.IsType(t, &StandardScaler{}, artifact.Scaler)
	assert.Equal(t, StrategyTable, artifact.Schema.Strategy)
	assert.Len(t, artifact.Sources, 3)
}

func TestLoadArtifactMissingFile(t *testing.T) {
	for _, name := range []string{"model.json", "scaler.json", "schema.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := writeArtifactDir(t)
			require.NoError(t, os.Remove(filepath.Join(cfg.Dir, name)))

			artifact, err := LoadArtifact(cfg)
			assert.Nil(t, artifact)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingArtifact), "got %v", err)
			assert.False(t, errors.Is(err, ErrIncompatibleArtifact))

			var ae *ArtifactError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, filepath.Join(cfg.Dir, name), ae.Path)
			assert.Contains(t, err.Error(), "not found")
		})
	}
}

func TestLoadArtifactMissingColumns(t *testing.T) {
	cfg := writeArtifactDir(t)
	cfg.Columns = "columns.json"
	_, err := LoadArtifact(cfg)
	assert.True(t, errors.Is(err, ErrMissingArtifact))
}

func TestLoadArtifactIncompatible(t *testing.T) {
	cases := map[string]struct {
		file    string
		content string
	}{
		"garbage model":       {"model.json", "\x80\x04\x95pickle"},
		"unknown model type":  {"model.json", `{"format_version":1,"type":"xgboost"}`},
		"future format":       {"model.json", `{"format_version":2,"type":"logistic_regression","classes":[0,1],"coef":[1]}`},
		"untyped scaler":      {"scaler.json", `{"format_version":1,"mean":[0]}`},
		"ragged scaler":       {"scaler.json", `{"format_version":1,"type":"standard","mean":[0,0],"scale":[1]}`},
		"width disagreement":  {"scaler.json", `{"format_version":1,"type":"standard","mean":[0,0],"scale":[1,1]}`},
		"bad schema":          {"schema.yaml", "fields:\n  - name: x\n    type: slider\n"},
		"schema not yaml":     {"schema.yaml", "fields: [\n"},
		"one class":           {"model.json", `{"format_version":1,"type":"logistic_regression","classes":[1],"coef":[0,0,0,0,0,0,0,0,0,0,0,0]}`},
		"wrong coef type":     {"model.json", `{"format_version":1,"type":"logistic_regression","classes":[0,1],"coef":"many"}`},
		"unsupported scaler":  {"scaler.json", `{"format_version":1,"type":"robust"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := writeArtifactDir(t)
			writeFile(t, cfg.Dir, tc.file, tc.content)

			artifact, err := LoadArtifact(cfg)
			assert.Nil(t, artifact)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIncompatibleArtifact), "got %v", err)
		})
	}
}

func TestLoadArtifactRequiresAllFiles(t *testing.T) {
	_, err := LoadArtifact(ArtifactConfig{Dir: t.TempDir(), Model: "model.json"})
	assert.True(t, errors.Is(err, ErrIncompatibleArtifact))
}

func TestLoadArtifactWithColumns(t *testing.T) {
	cfg := writeArtifactDir(t)
	columns := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	writeJSON(t, cfg.Dir, "columns.json", columns)
	cfg.Columns = "columns.json"

	artifact, err := LoadArtifact(cfg)
	require.NoError(t, err)
	assert.Equal(t, columns, artifact.Columns)
	assert.Len(t, artifact.Sources, 4)

	writeFile(t, cfg.Dir, "columns.json", "[]")
	_, err = LoadArtifact(cfg)
	assert.True(t, errors.Is(err, ErrIncompatibleArtifact))
}

func TestLoadPipeline(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "pipeline.json", map[string]interface{}{
		"format_version": 1,
		"schema": map[string]interface{}{
			"strategy": "frame",
			"fields": []map[string]interface{}{
				{"name": "age", "type": "integer", "min": 18, "max": 100, "default": 40},
				{"name": "geography", "type": "choice", "choices": []string{"France", "Spain", "Germany"}},
			},
		},
		"columns": []string{"age", "geography_Germany", "geography_Spain"},
		"model": map[string]interface{}{
			"format_version": 1, "type": "logistic_regression",
			"classes": []int{0, 1}, "coef": []float64{0.1, 1, 0}, "intercept": -1,
		},
		"scaler": map[string]interface{}{
			"format_version": 1, "type": "minmax",
			"data_min": []float64{18, 0, 0}, "data_max": []float64{100, 1, 1},
		},
	})

	artifact, err := LoadArtifact(ArtifactConfig{Dir: dir, Pipeline: "pipeline.json", Model: "ignored.json"})
	require.NoError(t, err)
	assert.Equal(t, 3, artifact.ExpectedWidth())
	assert.Equal(t, StrategyFrame, artifact.Schema.Strategy)
	assert.Equal(t, []string{"age", "geography_Germany", "geography_Spain"}, artifact.Columns)
	assert.Equal(t, []string{filepath.Join(dir, "pipeline.json")}, artifact.Sources)
}

func TestLoadPipelineFailures(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadArtifact(ArtifactConfig{Dir: dir, Pipeline: "pipeline.json"})
	assert.True(t, errors.Is(err, ErrMissingArtifact))

	writeFile(t, dir, "pipeline.json", `{"format_version":1,"model":{}}`)
	_, err = LoadArtifact(ArtifactConfig{Dir: dir, Pipeline: "pipeline.json"})
	assert.True(t, errors.Is(err, ErrIncompatibleArtifact))

	writeFile(t, dir, "pipeline.json", `{"format_version":0}`)
	_, err = LoadArtifact(ArtifactConfig{Dir: dir, Pipeline: "pipeline.json"})
	assert.True(t, errors.Is(err, ErrIncompatibleArtifact))
}

func TestArtifactConfigPaths(t *testing.T) {
	cfg := ArtifactConfig{Dir: "/srv/art", Model: "m.json", Scaler: "/abs/s.json", Schema: "schema.yaml"}
	assert.Equal(t, []string{"/srv/art/m.json", "/abs/s.json", "/srv/art/schema.yaml"}, cfg.Paths())

	cfg.Pipeline = "p.json"
	assert.Equal(t, []string{"/srv/art/p.json"}, cfg.Paths())
}

func TestLoadSchemaChoiceDefaults(t *testing.T) {
	dir := t.TempDir()

	quoted := writeFile(t, dir, "quoted.yaml", `fields:
  - name: techsupport
    type: choice
    choices: ["Yes", "No"]
    default: "No"
`)
	schema, err := LoadSchema(quoted)
	require.NoError(t, err)
	assert.Equal(t, "No", schema.Fields[0].DefaultChoice())

	bare := writeFile(t, dir, "bare.yaml", `fields:
  - name: techsupport
    type: choice
    choices: ["Yes", "No"]
    default: No
`)
	_, err = LoadSchema(bare)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleArtifact))
	assert.Contains(t, err.Error(), "quote it")
}
