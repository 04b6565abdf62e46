package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Target clinical tables a mapping may populate.
const (
	TableAllergies     = "allergies"
	TableDiagnoses     = "diagnoses"
	TableVitals        = "vitals"
	TableImmunizations = "immunizations"
	TableLabResults    = "lab_results"
	TableProcedures    = "procedures"
	TablePrescriptions = "prescriptions"
)

var validTargetTables = map[string]bool{
	TableAllergies:     true,
	TableDiagnoses:     true,
	TableVitals:        true,
	TableImmunizations: true,
	TableLabResults:    true,
	TableProcedures:    true,
	TablePrescriptions: true,
}

// Field types a mapping may coerce to.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldDate     = "date"
	FieldDateTime = "datetime"
	FieldBoolean  = "boolean"
	FieldJSON     = "json"
)

var validFieldTypes = map[string]bool{
	FieldText: true, FieldNumber: true, FieldDate: true,
	FieldDateTime: true, FieldBoolean: true, FieldJSON: true,
}

// ExtractionTemplate maps to the extraction_template table. At most one
// template per document type may be flagged default; the service clears the
// previous default on promotion.
type ExtractionTemplate struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	DocumentType string    `db:"document_type" json:"document_type"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	IsDefault    bool      `db:"is_default" json:"is_default"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FieldMapping is one ordered rule owned by a template. Evaluation order is
// processing_order, ties broken by insertion sequence.
type FieldMapping struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	TemplateID           uuid.UUID       `db:"template_id" json:"template_id"`
	SourceSection        string          `db:"source_section" json:"source_section"`
	SourceFieldPath      string          `db:"source_field_path" json:"source_field_path"`
	TargetTable          string          `db:"target_table" json:"target_table"`
	TargetField          string          `db:"target_field" json:"target_field"`
	FieldType            string          `db:"field_type" json:"field_type"`
	TransformationType   string          `db:"transformation_type" json:"transformation_type"`
	TransformationConfig json.RawMessage `db:"transformation_config" json:"transformation_config,omitempty"`
	IsRequired           bool            `db:"is_required" json:"is_required"`
	DefaultValue         *string         `db:"default_value" json:"default_value,omitempty"`
	ProcessingOrder      int             `db:"processing_order" json:"processing_order"`
	IsActive             bool            `db:"is_active" json:"is_active"`
	InsertionSeq         int64           `db:"insertion_seq" json:"-"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// Transformation kinds.
const (
	TransformDirect        = "direct"
	TransformSplit         = "split"
	TransformConcatenation = "concatenation"
	TransformLookup        = "lookup"
	TransformAIMatch       = "ai_match"
	TransformCalculation   = "calculation"
)

// TransformationSpec is the closed tagged variant parsed from a mapping's
// transformation_type + transformation_config. Configs are validated when a
// mapping is saved so malformed ones never reach the extraction pipeline.
type TransformationSpec struct {
	Type        string
	Split       *SplitSpec
	Concatenate *ConcatenateSpec
	Lookup      *LookupSpec
	AIMatch     *AIMatchSpec
	Calculation *CalculationSpec
}

// SplitSpec splits a delimited value and selects one part.
type SplitSpec struct {
	Delimiter string `json:"delimiter"`
	Index     int    `json:"index"`
}

// ConcatenateSpec joins several source fields into one value.
type ConcatenateSpec struct {
	Fields    []string `json:"fields"`
	Separator string   `json:"separator"`
}

// LookupSpec resolves a free-text value against the reference coding store.
type LookupSpec struct {
	CodingSystem string `json:"coding_system"`
}

// AIMatchSpec delegates to the external code-suggestion service. Suggestions
// scoring below Threshold are flagged for review instead of populated.
type AIMatchSpec struct {
	CodingSystem string  `json:"coding_system"`
	Threshold    float64 `json:"threshold"`
}

// CalculationSpec evaluates an arithmetic formula over already-resolved
// fields of the same target record, e.g. "weight / (height * height)".
type CalculationSpec struct {
	Formula string `json:"formula"`
}

// ParseSpec validates and decodes a mapping's transformation configuration.
func ParseSpec(transformationType string, config json.RawMessage) (*TransformationSpec, error) {
	spec := &TransformationSpec{Type: transformationType}

	decode := func(v interface{}) error {
		if len(config) == 0 {
			return fmt.Errorf("transformation_config is required for %s", transformationType)
		}
		if err := json.Unmarshal(config, v); err != nil {
			return fmt.Errorf("invalid transformation_config for %s: %w", transformationType, err)
		}
		return nil
	}

	switch transformationType {
	case TransformDirect:
		// no config

	case TransformSplit:
		var s SplitSpec
		if err := decode(&s); err != nil {
			return nil, err
		}
		if s.Delimiter == "" {
			return nil, fmt.Errorf("split: delimiter is required")
		}
		if s.Index < 0 {
			return nil, fmt.Errorf("split: index must be >= 0")
		}
		spec.Split = &s

	case TransformConcatenation:
		var cc ConcatenateSpec
		if err := decode(&cc); err != nil {
			return nil, err
		}
		if len(cc.Fields) < 2 {
			return nil, fmt.Errorf("concatenation: at least two fields are required")
		}
		spec.Concatenate = &cc

	case TransformLookup:
		var l LookupSpec
		if err := decode(&l); err != nil {
			return nil, err
		}
		if strings.TrimSpace(l.CodingSystem) == "" {
			return nil, fmt.Errorf("lookup: coding_system is required")
		}
		spec.Lookup = &l

	case TransformAIMatch:
		var a AIMatchSpec
		if err := decode(&a); err != nil {
			return nil, err
		}
		if strings.TrimSpace(a.CodingSystem) == "" {
			return nil, fmt.Errorf("ai_match: coding_system is required")
		}
		if a.Threshold < 0 || a.Threshold > 1 {
			return nil, fmt.Errorf("ai_match: threshold must be in [0,1]")
		}
		spec.AIMatch = &a

	case TransformCalculation:
		var calc CalculationSpec
		if err := decode(&calc); err != nil {
			return nil, err
		}
		if strings.TrimSpace(calc.Formula) == "" {
			return nil, fmt.Errorf("calculation: formula is required")
		}
		spec.Calculation = &calc

	default:
		return nil, fmt.Errorf("unknown transformation_type: %s", transformationType)
	}

	return spec, nil
}

// Spec parses the mapping's transformation into its validated form.
func (fm *FieldMapping) Spec() (*TransformationSpec, error) {
	return ParseSpec(fm.TransformationType, fm.TransformationConfig)
}

// Validate checks a mapping before it is saved.
func (fm *FieldMapping) Validate() error {
	if fm.TemplateID == uuid.Nil {
		return fmt.Errorf("template_id is required")
	}
	if !validTargetTables[fm.TargetTable] {
		return fmt.Errorf("invalid target_table: %s", fm.TargetTable)
	}
	if strings.TrimSpace(fm.TargetField) == "" {
		return fmt.Errorf("target_field is required")
	}
	if !validFieldTypes[fm.FieldType] {
		return fmt.Errorf("invalid field_type: %s", fm.FieldType)
	}
	if fm.TransformationType != TransformConcatenation && fm.TransformationType != TransformCalculation {
		if strings.TrimSpace(fm.SourceSection) == "" {
			return fmt.Errorf("source_section is required")
		}
	}
	if _, err := fm.Spec(); err != nil {
		return err
	}
	return nil
}
