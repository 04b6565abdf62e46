package extraction

import (
	"testing"
	"time"

	"github.com/chartdesk/chartdesk/internal/domain/template"
)

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		in      interface{}
		want    float64
		wantErr bool
	}{
		{"120 mmHg", 120, false},
		{"36.8 C", 36.8, false},
		{"weight: 72.5kg", 72.5, false},
		{"-3", -3, false},
		{float64(88), 88, false},
		{12, 12, false},
		{"no digits here", 0, true},
		{true, 0, true},
	}
	for _, tc := range cases {
		got, err := coerceNumber(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("coerceNumber(%v): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("coerceNumber(%v): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("coerceNumber(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCoerceDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cases := []string{
		"2024-03-15",
		"15/03/2024",
		"15 March 2024",
		"March 15, 2024",
		"15 Mar 2024",
	}
	for _, in := range cases {
		got, err := coerceDate(in)
		if err != nil {
			t.Errorf("coerceDate(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("coerceDate(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := coerceDate("the ides of march"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestCoerceBool(t *testing.T) {
	truthy := []interface{}{"yes", "Y", "TRUE", "1", "positive", true, float64(2)}
	for _, in := range truthy {
		got, err := coerceBool(in)
		if err != nil || !got {
			t.Errorf("coerceBool(%v) = %v, %v; want true", in, got, err)
		}
	}
	falsy := []interface{}{"no", "false", "0", "negative", false, float64(0)}
	for _, in := range falsy {
		got, err := coerceBool(in)
		if err != nil || got {
			t.Errorf("coerceBool(%v) = %v, %v; want false", in, got, err)
		}
	}
	if _, err := coerceBool("maybe"); err == nil {
		t.Error("expected error for ambiguous boolean")
	}
}

func TestCoerce_Text(t *testing.T) {
	got, err := coerce(float64(120), template.FieldText)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if got != "120" {
		t.Errorf("coerce(120, text) = %q, want %q", got, "120")
	}
}
