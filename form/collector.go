// Package form collects typed field values for a schema from HTML forms, JSON
// bodies and terminal prompts.
package form

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"churnguard/ml"

	"golang.org/x/text/cases"
)

// FieldError is a value that failed type or range checks.
type FieldError struct {
	Field  string
	Label  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Label, e.Reason)
}

// Errors collects every failing field of one submission.
type Errors []*FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// For returns the reason a field failed, or "".
func (e Errors) For(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Reason
		}
	}
	return ""
}

// Defaults is the initial record for a fresh form.
func Defaults(schema *ml.Schema) ml.Record {
	record := make(ml.Record, len(schema.Fields))
	for _, f := range schema.Fields {
		if f.Numeric() {
			record[f.Name] = f.DefaultNumber()
		} else {
			record[f.Name] = f.DefaultChoice()
		}
	}
	return record
}

// FromValues reads a submitted HTML form. Blank fields take their default.
func FromValues(schema *ml.Schema, values url.Values) (ml.Record, error) {
	raw := make(map[string]string, len(schema.Fields))
	for _, f := range schema.Fields {
		if v := strings.TrimSpace(values.Get(f.Name)); v != "" {
			raw[f.Name] = v
		}
	}
	return collect(schema, raw)
}

// FromMap reads a decoded JSON object. Numbers may arrive as JSON numbers or strings.
func FromMap(schema *ml.Schema, values map[string]interface{}) (ml.Record, error) {
	raw := make(map[string]string, len(schema.Fields))
	var errs Errors
	for _, f := range schema.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				raw[f.Name] = s
			}
		case float64:
			raw[f.Name] = strconv.FormatFloat(x, 'f', -1, 64)
		case json.Number:
			raw[f.Name] = x.String()
		default:
			errs = append(errs, &FieldError{Field: f.Name, Label: f.DisplayLabel(), Reason: fmt.Sprintf("unsupported value %v", v)})
		}
	}
	record, err := collect(schema, raw)
	if len(errs) > 0 {
		if more, ok := err.(Errors); ok {
			errs = append(errs, more...)
		}
		sort.SliceStable(errs, func(i, j int) bool { return fieldIndex(schema, errs[i].Field) < fieldIndex(schema, errs[j].Field) })
		return nil, errs
	}
	return record, err
}

func collect(schema *ml.Schema, raw map[string]string) (ml.Record, error) {
	record := Defaults(schema)
	var errs Errors
	for _, f := range schema.Fields {
		s, ok := raw[f.Name]
		if !ok {
			continue
		}
		v, err := Parse(f, s)
		if err != nil {
			errs = append(errs, &FieldError{Field: f.Name, Label: f.DisplayLabel(), Reason: err.Error()})
			continue
		}
		record[f.Name] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return record, nil
}

// Parse converts one raw value under the field's type and range.
func Parse(f ml.Field, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if f.Numeric() {
		return parseNumber(f, raw)
	}
	return matchChoice(f, raw)
}

func parseNumber(f ml.Field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if f.Type == ml.FieldInteger && v != math.Trunc(v) {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	if !f.InRange(v) {
		return 0, fmt.Errorf("%v is out of range %s", v, RangeText(f))
	}
	return v, nil
}

func matchChoice(f ml.Field, raw string) (string, error) {
	if f.HasChoice(raw) {
		return raw, nil
	}
	// a Caser keeps state, so each call folds with its own
	folder := cases.Fold()
	want := folder.String(raw)
	for _, c := range f.Choices {
		if folder.String(c) == want {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %s", raw, strings.Join(f.Choices, ", "))
}

// RangeText describes a numeric field's bounds, e.g. "[0, 72]" or "[0, ∞)".
func RangeText(f ml.Field) string {
	lo, hi := "(-∞", "∞)"
	if f.Min != nil {
		lo = "[" + strconv.FormatFloat(*f.Min, 'f', -1, 64)
	}
	if f.Max != nil {
		hi = strconv.FormatFloat(*f.Max, 'f', -1, 64) + "]"
	}
	return lo + ", " + hi
}

// Text renders a record value the way a user would type it.
func Text(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func fieldIndex(schema *ml.Schema, name string) int {
	for i, f := range schema.Fields {
		if f.Name == name {
			return i
		}
	}
	return len(schema.Fields)
}
