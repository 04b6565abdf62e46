package extraction

import "testing"

func testSections() map[string]interface{} {
	return map[string]interface{}{
		"demographics": map[string]interface{}{
			"first_name": "Thabo",
			"address": map[string]interface{}{
				"city": "Durban",
			},
		},
		"medications": []interface{}{
			map[string]interface{}{"name": "Metformin", "dose": "500mg"},
			map[string]interface{}{"name": "Enalapril"},
		},
		"note": "follow up in 2 weeks",
	}
}

func TestPathResolve(t *testing.T) {
	root := testSections()
	cases := []struct {
		path string
		want interface{}
		ok   bool
	}{
		{"demographics.first_name", "Thabo", true},
		{"demographics.address.city", "Durban", true},
		{"medications.0.name", "Metformin", true},
		{"medications[1].name", "Enalapril", true},
		{"note", "follow up in 2 weeks", true},
		{"demographics.middle_name", nil, false},
		{"demographics.middle_name.typo", nil, false},
		{"medications.5.name", nil, false},
		{"medications.x.name", nil, false},
		{"note.deeper", nil, false},
		{"missing_section.key", nil, false},
	}
	for _, tc := range cases {
		got, ok := ParsePath(tc.path).Resolve(root)
		if ok != tc.ok {
			t.Errorf("Resolve(%q) ok = %v, want %v", tc.path, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("Resolve(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestPathResolve_EmptyPathIsRoot(t *testing.T) {
	v, ok := ParsePath("").Resolve("scalar")
	if !ok || v != "scalar" {
		t.Fatalf("empty path should resolve to the root, got %v (%v)", v, ok)
	}
}

func TestPathResolve_NilValueIsMissing(t *testing.T) {
	root := map[string]interface{}{"empty": nil}
	if _, ok := ParsePath("empty").Resolve(root); ok {
		t.Fatal("explicit null should count as missing")
	}
}
