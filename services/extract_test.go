package services

import (
	"encoding/json"
	"testing"

	"atomrouter/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestExtractSeries(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *models.ExtractedSeries
	}{
		{
			name:  "flat object",
			input: `{"2021": 100, "2022": 150}`,
			want:  &models.ExtractedSeries{Labels: []string{"2021", "2022"}, Values: []float64{100, 150}},
		},
		{
			name:  "fenced object keeps key order",
			input: "```json\n{\"zeta\": 3, \"alpha\": 1.5, \"mid\": 2}\n```",
			want:  &models.ExtractedSeries{Labels: []string{"zeta", "alpha", "mid"}, Values: []float64{3, 1.5, 2}},
		},
		{
			name:  "object inside prose with mixed values",
			input: `Aquí tienes los datos: {"Enero": "12 unidades", "Febrero": "abc", "Marzo": true} espero que sirva`,
			want:  &models.ExtractedSeries{Labels: []string{"Enero", "Febrero", "Marzo"}, Values: []float64{12, 3, 1}},
		},
		{
			name:  "booleans count as zero or one",
			input: `{"si": true, "no": false, "nada": null}`,
			want:  &models.ExtractedSeries{Labels: []string{"si", "no", "nada"}, Values: []float64{1, 0, 1}},
		},
		{
			name:  "array values missing or boolean",
			input: `{x} [{"mes": "Enero", "ventas": 10}, {"mes": "Marzo"}, {"mes": "Abril", "ventas": false}]`,
			want:  &models.ExtractedSeries{Labels: []string{"Enero", "Marzo", "Abril"}, Values: []float64{10, 1, 0}},
		},
		{
			name:  "duplicate key keeps first position and last value",
			input: `{"a": 1, "b": 2, "a": 3}`,
			want:  &models.ExtractedSeries{Labels: []string{"a", "b"}, Values: []float64{3, 2}},
		},
		{
			name:  "array of objects after an unparsable brace group",
			input: `Nota {borrador} [{"mes": "Enero", "ventas": 10}, {"mes": "Febrero", "ventas": "n/a"}, {"mes": "Marzo"}, 7]`,
			want:  &models.ExtractedSeries{Labels: []string{"Enero", "Febrero", "Marzo"}, Values: []float64{10, 1, 1}},
		},
		{
			name:  "array of single key objects uses the key for both fields",
			input: `{oops} [{"n": 4}, {"n": 5}]`,
			want:  &models.ExtractedSeries{Labels: []string{"4", "5"}, Values: []float64{4, 5}},
		},
		{
			name:  "labelled lines",
			input: "Enero: 10\nFebrero - 20.5\nMarzo | 30\nAbril 40\nok",
			want:  &models.ExtractedSeries{Labels: []string{"Enero", "Febrero", "Marzo", "Abril"}, Values: []float64{10, 20.5, 30, 40}},
		},
		{
			name:  "free text",
			input: "not json at all, just words",
			want:  nil,
		},
		{
			name:  "malformed object",
			input: `{"a": }`,
			want:  nil,
		},
		{
			name:  "empty object",
			input: `{}`,
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSeries(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractSeries() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractSeriesNeverPanics(t *testing.T) {
	inputs := []string{
		"{", "}", "[", "]", "[{", "{[}]", `[{"a":`, `[1, 2, 3]`, `[[]]`, `[{}]`, `{"a": {"b": 1}}`,
		"```", "```json", ":", "| 5", "– 3", "\x00\xff", `{"a": null}`, `[null, {"x": 1}]`,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { ExtractSeries(in) }, "input %q", in)
	}
}

func TestExtractSeriesArrayOfObjectsInBareJSON(t *testing.T) {
	// The first flat object inside the array is found first
	got := ExtractSeries(`[{"mes": "Enero", "ventas": 10}, {"mes": "Febrero", "ventas": 20}]`)
	want := &models.ExtractedSeries{Labels: []string{"mes", "ventas"}, Values: []float64{5, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractSeries() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSeriesStringifiedMapping(t *testing.T) {
	data, err := json.Marshal(map[string]int{"2020": 50000000, "2021": 55000000})
	if err != nil {
		t.Fatal(err)
	}

	got := ExtractSeries(string(data))
	want := &models.ExtractedSeries{Labels: []string{"2020", "2021"}, Values: []float64{50000000, 55000000}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractSeries() mismatch (-want +got):\n%s", diff)
	}
}
