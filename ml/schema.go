package ml

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v2"
)

// Strategy selects how a record is turned into a feature vector.
type Strategy string

const (
	// StrategyTable concatenates per-field encodings in schema order.
	StrategyTable Strategy = "table"
	// StrategyFrame one-hot encodes into named columns and reindexes them
	// against an expected column list.
	StrategyFrame Strategy = "frame"
)

// FieldType is the input type of a form field.
type FieldType string

const (
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldChoice  FieldType = "choice"
)

// Encoding is how a choice field becomes numbers under the table strategy.
type Encoding string

const (
	EncodingOneHot  Encoding = "onehot"
	EncodingOrdinal Encoding = "ordinal"
	EncodingBinary  Encoding = "binary"
)

// Record is one set of submitted field values. Numeric fields hold float64,
// choice fields hold the canonical choice string.
type Record map[string]interface{}

// FeatureVector is the ordered numeric encoding of one record.
type FeatureVector []float64

// Field describes one collected input and its encoding rule.
type Field struct {
	Name      string             `yaml:"name" json:"name"`
	Label     string             `yaml:"label,omitempty" json:"label,omitempty"`
	Type      FieldType          `yaml:"type" json:"type"`
	Min       *float64           `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64           `yaml:"max,omitempty" json:"max,omitempty"`
	Step      float64            `yaml:"step,omitempty" json:"step,omitempty"`
	Default   interface{}        `yaml:"default,omitempty" json:"default,omitempty"`
	Choices   []string           `yaml:"choices,omitempty" json:"choices,omitempty"`
	Encoding  Encoding           `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	DropFirst bool               `yaml:"drop_first,omitempty" json:"drop_first,omitempty"`
	Positive  string             `yaml:"positive,omitempty" json:"positive,omitempty"`
	Codes     map[string]float64 `yaml:"codes,omitempty" json:"codes,omitempty"`
	Column    string             `yaml:"column,omitempty" json:"column,omitempty"`
}

// DisplayLabel falls back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Numeric reports whether the field carries a number.
func (f Field) Numeric() bool {
	return f.Type == FieldInteger || f.Type == FieldNumber
}

// ColumnName is the name of the field's own column, or the prefix of its
// indicator columns.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// IndicatorColumn names the one-hot column for a choice.
func (f Field) IndicatorColumn(choice string) string {
	return f.ColumnName() + "_" + choice
}

// InRange reports whether v satisfies the declared bounds.
func (f Field) InRange(v float64) bool {
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// HasChoice reports whether s is one of the declared choices, compared exactly.
func (f Field) HasChoice(s string) bool {
	return f.choiceIndex(s) >= 0
}

func (f Field) choiceIndex(s string) int {
	for i, c := range f.Choices {
		if c == s {
			return i
		}
	}
	return -1
}

// DefaultNumber is the numeric default, clamped into range when none is declared.
func (f Field) DefaultNumber() float64 {
	if v, ok := toFloat(f.Default); ok {
		return v
	}
	if f.Min != nil && *f.Min > 0 {
		return *f.Min
	}
	if f.Max != nil && *f.Max < 0 {
		return *f.Max
	}
	return 0
}

// DefaultChoice is the declared default or the first choice.
func (f Field) DefaultChoice() string {
	if s, ok := f.Default.(string); ok && s != "" {
		return s
	}
	if len(f.Choices) == 0 {
		return ""
	}
	return f.Choices[0]
}

// Schema is the declarative contract between the form and the artifact.
type Schema struct {
	Strategy      Strategy `yaml:"strategy" json:"strategy"`
	PositiveClass *int     `yaml:"positive_class,omitempty" json:"positive_class,omitempty"`
	Fields        []Field  `yaml:"fields" json:"fields"`
	Columns       []string `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// Positive returns the class label treated as churn.
func (s *Schema) Positive() int {
	if s.PositiveClass == nil {
		return 1
	}
	return *s.PositiveClass
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the schema for internal consistency.
func (s *Schema) Validate() error {
	switch s.Strategy {
	case "":
		s.Strategy = StrategyTable
	case StrategyTable, StrategyFrame:
	default:
		return fmt.Errorf("unknown strategy %q", s.Strategy)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema declares no fields")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func (f *Field) validate() error {
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("min %v exceeds max %v", *f.Min, *f.Max)
	}
	switch f.Type {
	case FieldInteger, FieldNumber:
		if f.Encoding != "" {
			return fmt.Errorf("encoding %q only applies to choice fields", f.Encoding)
		}
		if f.Default != nil {
			v, ok := toFloat(f.Default)
			if !ok {
				return fmt.Errorf("default %v is not a number", f.Default)
			}
			if !f.InRange(v) {
				return fmt.Errorf("default %v outside [%s, %s]", v, bound(f.Min), bound(f.Max))
			}
			if f.Type == FieldInteger && v != math.Trunc(v) {
				return fmt.Errorf("default %v is not an integer", v)
			}
		}
	case FieldChoice:
		if len(f.Choices) == 0 {
			return fmt.Errorf("choice field has no choices")
		}
		dup := make(map[string]bool, len(f.Choices))
		for _, c := range f.Choices {
			if dup[c] {
				return fmt.Errorf("choice %q listed twice", c)
			}
			dup[c] = true
		}
		if f.Default != nil {
			d, ok := f.Default.(string)
			if !ok {
				// YAML reads bare Yes/No/On/Off as booleans
				return fmt.Errorf("default %v is a %T, not a choice; quote it", f.Default, f.Default)
			}
			if d != "" && !f.HasChoice(d) {
				return fmt.Errorf("default %q is not a choice", d)
			}
		}
		switch f.Encoding {
		case "":
			f.Encoding = EncodingOneHot
		case EncodingOneHot, EncodingOrdinal, EncodingBinary:
		default:
			return fmt.Errorf("unknown encoding %q", f.Encoding)
		}
		if f.Encoding == EncodingOneHot && f.DropFirst && len(f.Choices) < 2 {
			return fmt.Errorf("drop_first needs at least two choices")
		}
		if f.Encoding == EncodingBinary {
			if f.Positive == "" {
				f.Positive = f.Choices[0]
			}
			if !f.HasChoice(f.Positive) {
				return fmt.Errorf("positive %q is not a choice", f.Positive)
			}
		}
		if f.Encoding == EncodingOrdinal && len(f.Codes) > 0 {
			for _, c := range f.Choices {
				if _, ok := f.Codes[c]; !ok {
					return fmt.Errorf("ordinal codes miss choice %q", c)
				}
			}
		}
	default:
		return fmt.Errorf("unknown type %q", f.Type)
	}
	return nil
}

// LoadSchema reads a YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	payload, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	var schema Schema
	if err := yaml.Unmarshal(payload, &schema); err != nil {
		return nil, incompatible(path, "decode schema: %v", err)
	}
	if err := schema.Validate(); err != nil {
		return nil, incompatible(path, "%v", err)
	}
	return &schema, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func bound(v *float64) string {
	if v == nil {
		return "∞"
	}
	return fmt.Sprintf("%v", *v)
}
