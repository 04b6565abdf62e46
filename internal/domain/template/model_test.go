package template

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func TestParseSpec(t *testing.T) {
	cases := []struct {
		name    string
		kind    string
		config  string
		wantErr bool
	}{
		{"direct without config", TransformDirect, "", false},
		{"split valid", TransformSplit, `{"delimiter":"/","index":1}`, false},
		{"split missing delimiter", TransformSplit, `{"index":0}`, true},
		{"split negative index", TransformSplit, `{"delimiter":"/","index":-1}`, true},
		{"concatenation valid", TransformConcatenation, `{"fields":["first_name","last_name"],"separator":" "}`, false},
		{"concatenation one field", TransformConcatenation, `{"fields":["first_name"]}`, true},
		{"lookup valid", TransformLookup, `{"coding_system":"icd10"}`, false},
		{"lookup missing system", TransformLookup, `{}`, true},
		{"ai_match valid", TransformAIMatch, `{"coding_system":"icd10","threshold":0.8}`, false},
		{"ai_match threshold out of range", TransformAIMatch, `{"coding_system":"icd10","threshold":1.5}`, true},
		{"calculation valid", TransformCalculation, `{"formula":"weight_kg / (height_cm * height_cm)"}`, false},
		{"calculation empty formula", TransformCalculation, `{"formula":"  "}`, true},
		{"unknown kind", "transmute", `{}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg json.RawMessage
			if tc.config != "" {
				cfg = json.RawMessage(tc.config)
			}
			spec, err := ParseSpec(tc.kind, cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s config %s", tc.kind, tc.config)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpec: %v", err)
			}
			if spec.Type != tc.kind {
				t.Errorf("spec.Type = %s, want %s", spec.Type, tc.kind)
			}
		})
	}
}

func TestFieldMappingValidate(t *testing.T) {
	valid := func() *FieldMapping {
		return &FieldMapping{
			TemplateID:         newUUID(t),
			SourceSection:      "allergies",
			SourceFieldPath:    "substance",
			TargetTable:        TableAllergies,
			TargetField:        "substance",
			FieldType:          FieldText,
			TransformationType: TransformDirect,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid mapping rejected: %v", err)
	}

	fm := valid()
	fm.TargetTable = "encounters"
	if err := fm.Validate(); err == nil {
		t.Error("unknown target table accepted")
	}

	fm = valid()
	fm.FieldType = "decimal"
	if err := fm.Validate(); err == nil {
		t.Error("unknown field type accepted")
	}

	fm = valid()
	fm.TargetField = " "
	if err := fm.Validate(); err == nil {
		t.Error("blank target field accepted")
	}
}
