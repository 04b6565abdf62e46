package matching

import "testing"

func TestJaroWinkler(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"martha", "martha", 1.0, 1.0},
		{"", "", 0.0, 0.0},
		{"martha", "", 0.0, 0.0},
		{"martha", "marhta", 0.94, 0.98},
		{"dixon", "dicksonx", 0.76, 0.86},
		{"jonathan smith", "jonathon smyth", 0.85, 1.0},
		{"abc", "xyz", 0.0, 0.0},
	}
	for _, tc := range cases {
		got := jaroWinkler(tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Errorf("jaroWinkler(%q, %q) = %.3f, want in [%.2f, %.2f]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestJaroWinkler_Symmetric(t *testing.T) {
	a, b := "jonathan", "johan"
	if jaroWinkler(a, b) != jaroWinkler(b, a) {
		t.Errorf("similarity is not symmetric for %q/%q", a, b)
	}
}
