package ml

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableEncoderChurnScenario(t *testing.T) {
	enc, err := NewEncoder(churnSchema(), nil)
	require.NoError(t, err)

	vector, err := enc.Encode(churnRecord())
	require.NoError(t, err)

	want := FeatureVector{12, 70.0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, vector); diff != "" {
		t.Fatalf("unexpected vector (-want +got):\n%s", diff)
	}
	assert.Len(t, enc.Columns(), 12)
	assert.NoError(t, ValidateWidth(vector, 12))
}

func TestTableEncoderColumnsDocumentOrder(t *testing.T) {
	enc, err := NewEncoder(churnSchema(), nil)
	require.NoError(t, err)

	want := []string{
		"tenure", "monthlycharges",
		"contract_One year", "contract_Two year",
		"paymentmethod_Mailed check", "paymentmethod_Bank transfer (automatic)", "paymentmethod_Credit card (automatic)",
		"internetservice_Fiber optic", "internetservice_No",
		"techsupport", "streamingtv", "paperlessbilling",
	}
	if diff := cmp.Diff(want, enc.Columns()); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}
}

func TestTableEncoderCategoricalMaps(t *testing.T) {
	enc, err := NewEncoder(churnSchema(), nil)
	require.NoError(t, err)

	cases := []struct {
		field string
		value string
		want  []float64
		at    int
	}{
		{"contract", "One year", []float64{1, 0}, 2},
		{"contract", "Two year", []float64{0, 1}, 2},
		{"paymentmethod", "Mailed check", []float64{1, 0, 0}, 4},
		{"paymentmethod", "Bank transfer (automatic)", []float64{0, 1, 0}, 4},
		{"paymentmethod", "Credit card (automatic)", []float64{0, 0, 1}, 4},
		{"internetservice", "Fiber optic", []float64{1, 0}, 7},
		{"internetservice", "No", []float64{0, 1}, 7},
		{"techsupport", "Yes", []float64{1}, 9},
		{"streamingtv", "Yes", []float64{1}, 10},
		{"paperlessbilling", "Yes", []float64{1}, 11},
	}
	for _, tc := range cases {
		t.Run(tc.field+"="+tc.value, func(t *testing.T) {
			record := churnRecord()
			record[tc.field] = tc.value
			vector, err := enc.Encode(record)
			require.NoError(t, err)
			got := []float64(vector[tc.at : tc.at+len(tc.want)])
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOneHotDropFirst(t *testing.T) {
	choices := []string{"a", "b", "c", "d", "e"}
	schema := &Schema{Fields: []Field{
		{Name: "cat", Type: FieldChoice, Choices: choices, Encoding: EncodingOneHot, DropFirst: true},
	}}
	require.NoError(t, schema.Validate())
	enc, err := NewEncoder(schema, nil)
	require.NoError(t, err)
	require.Len(t, enc.Columns(), len(choices)-1)

	for i, c := range choices {
		vector, err := enc.Encode(Record{"cat": c})
		require.NoError(t, err)
		require.Len(t, vector, len(choices)-1)

		sum := 0.0
		for _, v := range vector {
			sum += v
		}
		if i == 0 {
			assert.Zero(t, sum, "reference category must encode to all zeros")
		} else {
			assert.Equal(t, 1.0, sum, "non-reference category %q must set exactly one indicator", c)
			assert.Equal(t, 1.0, vector[i-1])
		}
	}
}

func TestOneHotWithoutDropFirst(t *testing.T) {
	schema := &Schema{Fields: []Field{
		{Name: "cat", Type: FieldChoice, Choices: []string{"a", "b", "c"}},
	}}
	require.NoError(t, schema.Validate())
	enc, err := NewEncoder(schema, nil)
	require.NoError(t, err)

	vector, err := enc.Encode(Record{"cat": "a"})
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{1, 0, 0}, vector)
}

func TestOrdinalEncoding(t *testing.T) {
	schema := &Schema{Fields: []Field{
		{Name: "gender", Type: FieldChoice, Choices: []string{"Female", "Male"}, Encoding: EncodingOrdinal},
		{Name: "geography", Type: FieldChoice, Choices: []string{"France", "Spain", "Germany"}, Encoding: EncodingOrdinal,
			Codes: map[string]float64{"France": 0, "Spain": 2, "Germany": 1}},
	}}
	require.NoError(t, schema.Validate())
	enc, err := NewEncoder(schema, nil)
	require.NoError(t, err)

	vector, err := enc.Encode(Record{"gender": "Male", "geography": "Spain"})
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{1, 2}, vector)
}

func TestEncodeIsDeterministic(t *testing.T) {
	for _, strategy := range []Strategy{StrategyTable, StrategyFrame} {
		t.Run(string(strategy), func(t *testing.T) {
			schema := churnSchema()
			schema.Strategy = strategy
			columns := []string{"tenure", "monthlycharges", "contract_One year", "contract_Two year", "techsupport_Yes"}
			enc, err := NewEncoder(schema, columns)
			require.NoError(t, err)

			record := churnRecord()
			record["contract"] = "Two year"
			record["techsupport"] = "Yes"
			first, err := enc.Encode(record)
			require.NoError(t, err)
			for i := 0; i < 50; i++ {
				again, err := enc.Encode(record)
				require.NoError(t, err)
				require.Equal(t, first, again)
			}
		})
	}
}

func TestFrameEncoderReindexZeroFills(t *testing.T) {
	schema := churnSchema()
	schema.Strategy = StrategyFrame
	columns := []string{
		"SeniorCitizen",
		"tenure",
		"monthlycharges",
		"contract_One year",
		"contract_Two year",
		"internetservice_Fiber optic",
		"paymentmethod_Electronic check",
	}
	enc, err := NewEncoder(schema, columns)
	require.NoError(t, err)
	assert.Equal(t, StrategyFrame, enc.Strategy())

	record := churnRecord()
	record["internetservice"] = "Fiber optic"
	vector, err := enc.Encode(record)
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{0, 12, 70, 0, 0, 1, 1}, vector)
}

func TestFrameEncoderOrderIndependent(t *testing.T) {
	columns := []string{"tenure", "monthlycharges", "contract_One year", "contract_Two year", "paperlessbilling_Yes"}

	forward := churnSchema()
	forward.Strategy = StrategyFrame
	reversed := churnSchema()
	reversed.Strategy = StrategyFrame
	for i, j := 0, len(reversed.Fields)-1; i < j; i, j = i+1, j-1 {
		reversed.Fields[i], reversed.Fields[j] = reversed.Fields[j], reversed.Fields[i]
	}

	a, err := NewEncoder(forward, columns)
	require.NoError(t, err)
	b, err := NewEncoder(reversed, columns)
	require.NoError(t, err)

	record := churnRecord()
	record["contract"] = "One year"
	record["paperlessbilling"] = "Yes"
	va, err := a.Encode(record)
	require.NoError(t, err)
	vb, err := b.Encode(record)
	require.NoError(t, err)
	assert.Equal(t, va, vb)
	assert.Equal(t, FeatureVector{12, 70, 1, 0, 1}, va)
}

func TestFrameEncoderUsesSchemaColumns(t *testing.T) {
	schema := churnSchema()
	schema.Strategy = StrategyFrame
	schema.Columns = []string{"tenure"}
	enc, err := NewEncoder(schema, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenure"}, enc.Columns())

	vector, dropped, err := enc.(*frameEncoder).reindex(churnRecord())
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{12}, vector)
	assert.Contains(t, dropped, "monthlycharges")
	assert.Contains(t, dropped, "contract_Month-to-month")
}

func TestFrameEncoderRequiresColumns(t *testing.T) {
	schema := churnSchema()
	schema.Strategy = StrategyFrame
	_, err := NewEncoder(schema, nil)
	require.Error(t, err)
}

func TestEncodeRejectsInvalidRecord(t *testing.T) {
	enc, err := NewEncoder(churnSchema(), nil)
	require.NoError(t, err)

	record := churnRecord()
	record["contract"] = "Three year"
	_, err = enc.Encode(record)
	assert.True(t, errors.Is(err, ErrInvalidRecord), "got %v", err)

	record = churnRecord()
	delete(record, "tenure")
	_, err = enc.Encode(record)
	assert.True(t, errors.Is(err, ErrInvalidRecord), "got %v", err)

	record = churnRecord()
	record["tenure"] = "twelve"
	_, err = enc.Encode(record)
	assert.True(t, errors.Is(err, ErrInvalidRecord), "got %v", err)
}

func TestValidateWidth(t *testing.T) {
	err := ValidateWidth(FeatureVector{1, 2, 3}, 30)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFeatureMismatch))

	var mismatch *FeatureMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 30, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
	assert.Contains(t, err.Error(), "30")
	assert.Contains(t, err.Error(), "3")
}
