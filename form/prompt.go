package form

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"churnguard/ml"
)

// Prompter asks for field values on a line-oriented terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Collect asks for every field in schema order. An empty answer keeps the
// default; an invalid answer is explained and asked again.
func (p *Prompter) Collect(ctx context.Context, schema *ml.Schema) (ml.Record, error) {
	record := Defaults(schema)
	for _, f := range schema.Fields {
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fmt.Fprint(p.out, question(f, record[f.Name]))
			line, err := p.readLine()
			if err != nil {
				return nil, err
			}
			if line == "" {
				break
			}
			v, err := p.parse(f, line)
			if err != nil {
				fmt.Fprintf(p.out, "  %v\n", err)
				continue
			}
			record[f.Name] = v
			break
		}
	}
	return record, nil
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", question, hint)
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// parse also accepts a 1-based choice number when no choice is spelled that way.
func (p *Prompter) parse(f ml.Field, line string) (interface{}, error) {
	v, err := Parse(f, line)
	if err == nil || f.Type != ml.FieldChoice {
		return v, err
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(f.Choices) {
		return f.Choices[n-1], nil
	}
	return nil, err
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func question(f ml.Field, current interface{}) string {
	var b strings.Builder
	b.WriteString(f.DisplayLabel())
	if f.Numeric() {
		fmt.Fprintf(&b, " %s", RangeText(f))
	} else {
		b.WriteString(" (")
		for i, c := range f.Choices {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d=%s", i+1, c)
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " [%s]: ", Text(current))
	return b.String()
}
