package extraction

import (
	"math"
	"testing"
)

func TestEvalFormula_BMI(t *testing.T) {
	fields := map[string]interface{}{
		"weight_kg": float64(72),
		"height_cm": float64(178),
	}
	got, err := evalFormula("weight_kg / ((height_cm / 100) * (height_cm / 100))", fields)
	if err != nil {
		t.Fatalf("evalFormula: %v", err)
	}
	want := 72 / (1.78 * 1.78)
	if math.Abs(got-want) > 0.001 {
		t.Errorf("bmi = %v, want %v", got, want)
	}
}

func TestEvalFormula_Precedence(t *testing.T) {
	got, err := evalFormula("2 + 3 * 4", nil)
	if err != nil {
		t.Fatalf("evalFormula: %v", err)
	}
	if got != 14 {
		t.Errorf("2 + 3 * 4 = %v, want 14", got)
	}
}

func TestEvalFormula_UnaryMinus(t *testing.T) {
	got, err := evalFormula("-(2 + 1) * 4", nil)
	if err != nil {
		t.Fatalf("evalFormula: %v", err)
	}
	if got != -12 {
		t.Errorf("got %v, want -12", got)
	}
}

func TestEvalFormula_FieldWithEmbeddedUnit(t *testing.T) {
	// resolved fields may still carry text values with units
	got, err := evalFormula("temperature + 1", map[string]interface{}{"temperature": "36.5 C"})
	if err != nil {
		t.Fatalf("evalFormula: %v", err)
	}
	if got != 37.5 {
		t.Errorf("got %v, want 37.5", got)
	}
}

func TestEvalFormula_Errors(t *testing.T) {
	cases := []struct {
		name    string
		formula string
		fields  map[string]interface{}
	}{
		{"empty", "", nil},
		{"unresolved field", "weight_kg * 2", nil},
		{"division by zero", "1 / 0", nil},
		{"dangling operator", "2 +", nil},
		{"unbalanced parens", "(2 + 3", nil},
		{"bad character", "2 ^ 3", nil},
		{"trailing token", "2 3", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := evalFormula(tc.formula, tc.fields); err == nil {
				t.Fatalf("expected error for %q", tc.formula)
			}
		})
	}
}
