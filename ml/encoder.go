package ml

import (
	"errors"
	"fmt"
	"sort"
)

// Encoder turns a record into a feature vector under a fixed schema.
type Encoder interface {
	Encode(record Record) (FeatureVector, error)
	// Columns is the ordered column layout the encoder produces.
	Columns() []string
	Strategy() Strategy
}

// NewEncoder builds the encoder selected by schema.Strategy. columns is the
// expected column list for the frame strategy; when empty, schema.Columns is used.
func NewEncoder(schema *Schema, columns []string) (Encoder, error) {
	if schema == nil {
		return nil, errors.New("schema is required")
	}
	switch schema.Strategy {
	case StrategyTable, "":
		return newTableEncoder(schema), nil
	case StrategyFrame:
		if len(columns) == 0 {
			columns = schema.Columns
		}
		if len(columns) == 0 {
			return nil, errors.New("frame strategy requires an expected column list")
		}
		return newFrameEncoder(schema, columns)
	default:
		return nil, fmt.Errorf("unknown strategy %q", schema.Strategy)
	}
}

// ValidateWidth fails with a FeatureMismatchError unless len(vector) == expected.
func ValidateWidth(vector FeatureVector, expected int) error {
	if len(vector) != expected {
		return &FeatureMismatchError{Expected: expected, Actual: len(vector)}
	}
	return nil
}

type tableEncoder struct {
	fields  []Field
	columns []string
}

func newTableEncoder(schema *Schema) *tableEncoder {
	enc := &tableEncoder{fields: schema.Fields}
	for _, f := range schema.Fields {
		enc.columns = append(enc.columns, tableColumns(f)...)
	}
	return enc
}

func tableColumns(f Field) []string {
	if f.Numeric() {
		return []string{f.ColumnName()}
	}
	switch f.Encoding {
	case EncodingOneHot:
		choices := f.Choices
		if f.DropFirst {
			choices = choices[1:]
		}
		cols := make([]string, len(choices))
		for i, c := range choices {
			cols[i] = f.IndicatorColumn(c)
		}
		return cols
	default:
		return []string{f.ColumnName()}
	}
}

func (e *tableEncoder) Strategy() Strategy { return StrategyTable }

func (e *tableEncoder) Columns() []string {
	return append([]string(nil), e.columns...)
}

func (e *tableEncoder) Encode(record Record) (FeatureVector, error) {
	vector := make(FeatureVector, 0, len(e.columns))
	for _, f := range e.fields {
		if f.Numeric() {
			v, err := numberValue(f, record)
			if err != nil {
				return nil, err
			}
			vector = append(vector, v)
			continue
		}

		choice, idx, err := choiceValue(f, record)
		if err != nil {
			return nil, err
		}
		switch f.Encoding {
		case EncodingOrdinal:
			if code, ok := f.Codes[choice]; ok {
				vector = append(vector, code)
			} else {
				vector = append(vector, float64(idx))
			}
		case EncodingBinary:
			if choice == f.Positive {
				vector = append(vector, 1)
			} else {
				vector = append(vector, 0)
			}
		default:
			start := 0
			if f.DropFirst {
				start = 1
			}
			for i := start; i < len(f.Choices); i++ {
				if i == idx {
					vector = append(vector, 1)
				} else {
					vector = append(vector, 0)
				}
			}
		}
	}
	return vector, nil
}

type frameEncoder struct {
	fields  []Field
	columns []string
	index   map[string]int
}

func newFrameEncoder(schema *Schema, columns []string) (*frameEncoder, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("expected column %q listed twice", c)
		}
		index[c] = i
	}
	return &frameEncoder{
		fields:  schema.Fields,
		columns: append([]string(nil), columns...),
		index:   index,
	}, nil
}

func (e *frameEncoder) Strategy() Strategy { return StrategyFrame }

func (e *frameEncoder) Columns() []string {
	return append([]string(nil), e.columns...)
}

// Frame returns the named row before reindexing: numeric fields keep their
// column name, every categorical field is expanded into field_Choice = 1.
func (e *frameEncoder) Frame(record Record) (map[string]float64, error) {
	row := make(map[string]float64, len(e.fields))
	for _, f := range e.fields {
		if f.Numeric() {
			v, err := numberValue(f, record)
			if err != nil {
				return nil, err
			}
			row[f.ColumnName()] = v
			continue
		}
		choice, _, err := choiceValue(f, record)
		if err != nil {
			return nil, err
		}
		row[f.IndicatorColumn(choice)] = 1
	}
	return row, nil
}

func (e *frameEncoder) Encode(record Record) (FeatureVector, error) {
	vector, _, err := e.reindex(record)
	return vector, err
}

// reindex places the frame row into the expected columns and also reports,
// sorted, the row columns the layout does not know about.
func (e *frameEncoder) reindex(record Record) (FeatureVector, []string, error) {
	row, err := e.Frame(record)
	if err != nil {
		return nil, nil, err
	}
	vector := make(FeatureVector, len(e.columns))
	var dropped []string
	for name, v := range row {
		if i, ok := e.index[name]; ok {
			vector[i] = v
			continue
		}
		dropped = append(dropped, name)
	}
	sort.Strings(dropped)
	return vector, dropped, nil
}

func numberValue(f Field, record Record) (float64, error) {
	raw, ok := record[f.Name]
	if !ok {
		return 0, fmt.Errorf("%w: field %q missing", ErrInvalidRecord, f.Name)
	}
	v, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is %T, want a number", ErrInvalidRecord, f.Name, raw)
	}
	return v, nil
}

func choiceValue(f Field, record Record) (string, int, error) {
	raw, ok := record[f.Name]
	if !ok {
		return "", -1, fmt.Errorf("%w: field %q missing", ErrInvalidRecord, f.Name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", -1, fmt.Errorf("%w: field %q is %T, want a choice", ErrInvalidRecord, f.Name, raw)
	}
	idx := f.choiceIndex(s)
	if idx < 0 {
		return "", -1, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidRecord, s, f.Name)
	}
	return s, idx, nil
}
