package ml

import (
	"encoding/json"
	"path/filepath"
)

// ArtifactConfig names the files that make up an artifact. Empty optional
// names are skipped. When Pipeline is set it replaces Model, Scaler, Schema
// and Columns.
type ArtifactConfig struct {
	Dir      string `yaml:"dir"`
	Model    string `yaml:"model"`
	Scaler   string `yaml:"scaler"`
	Schema   string `yaml:"schema"`
	Columns  string `yaml:"columns"`
	Pipeline string `yaml:"pipeline"`
}

// Paths returns every file the config refers to, resolved against Dir.
func (c ArtifactConfig) Paths() []string {
	if c.Pipeline != "" {
		return []string{c.path(c.Pipeline)}
	}
	paths := []string{c.path(c.Model), c.path(c.Scaler), c.path(c.Schema)}
	if c.Columns != "" {
		paths = append(paths, c.path(c.Columns))
	}
	return paths
}

func (c ArtifactConfig) path(name string) string {
	if name == "" || filepath.IsAbs(name) || c.Dir == "" {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// Artifact is a loaded model, scaler and schema. It is never mutated after
// LoadArtifact returns.
type Artifact struct {
	Model   MLModel
	Scaler  Scaler
	Schema  *Schema
	Columns []string
	Sources []string
}

// ExpectedWidth is the input width the artifact was fit against.
func (a *Artifact) ExpectedWidth() int {
	return a.Scaler.InputWidth()
}

// LoadArtifact reads every configured file. Any failure returns an
// *ArtifactError wrapping ErrMissingArtifact or ErrIncompatibleArtifact and
// no artifact.
func LoadArtifact(cfg ArtifactConfig) (*Artifact, error) {
	if cfg.Pipeline != "" {
		return loadPipeline(cfg.path(cfg.Pipeline))
	}
	if cfg.Model == "" || cfg.Scaler == "" || cfg.Schema == "" {
		return nil, incompatible(cfg.Dir, "model, scaler and schema files must all be configured")
	}

	modelPath, scalerPath, schemaPath := cfg.path(cfg.Model), cfg.path(cfg.Scaler), cfg.path(cfg.Schema)
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	if model.InputWidth() != scaler.InputWidth() {
		return nil, incompatible(modelPath, "model expects %d features but scaler %s was fit on %d",
			model.InputWidth(), scalerPath, scaler.InputWidth())
	}

	artifact := &Artifact{
		Model:   model,
		Scaler:  scaler,
		Schema:  schema,
		Columns: schema.Columns,
		Sources: cfg.Paths(),
	}
	if cfg.Columns != "" {
		columns, err := LoadColumns(cfg.path(cfg.Columns))
		if err != nil {
			return nil, err
		}
		artifact.Columns = columns
	}
	return artifact, nil
}

type pipelineFile struct {
	FormatVersion int             `json:"format_version"`
	Schema        *Schema         `json:"schema"`
	Model         json.RawMessage `json:"model"`
	Scaler        json.RawMessage `json:"scaler"`
	Columns       []string        `json:"columns"`
}

func loadPipeline(path string) (*Artifact, error) {
	payload, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	var p pipelineFile
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, incompatible(path, "decode pipeline: %v", err)
	}
	if p.FormatVersion != FormatVersion {
		return nil, incompatible(path, "format_version %d, this build reads %d", p.FormatVersion, FormatVersion)
	}
	if p.Schema == nil || len(p.Model) == 0 || len(p.Scaler) == 0 {
		return nil, incompatible(path, "pipeline must bundle schema, model and scaler")
	}
	if err := p.Schema.Validate(); err != nil {
		return nil, incompatible(path, "schema: %v", err)
	}
	model, err := decodeModel(path, p.Model)
	if err != nil {
		return nil, err
	}
	scaler, err := decodeScaler(path, p.Scaler)
	if err != nil {
		return nil, err
	}
	if model.InputWidth() != scaler.InputWidth() {
		return nil, incompatible(path, "model expects %d features but scaler was fit on %d",
			model.InputWidth(), scaler.InputWidth())
	}
	columns := p.Columns
	if len(columns) == 0 {
		columns = p.Schema.Columns
	}
	return &Artifact{
		Model:   model,
		Scaler:  scaler,
		Schema:  p.Schema,
		Columns: columns,
		Sources: []string{path},
	}, nil
}
