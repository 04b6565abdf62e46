package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chartdesk/chartdesk/internal/domain/template"
	"github.com/chartdesk/chartdesk/internal/platform/coding"
)

// Result is the outcome of applying one mapping.
type Result struct {
	// Value is the coerced value for the target field. Unset when Omitted.
	Value interface{}
	// Omitted means the mapping resolved to nothing without being an error:
	// an optional field missing from the document, or a below-threshold
	// ai_match suggestion withheld for review.
	Omitted bool
	// NeedsReview flags the whole record for mandatory human review.
	NeedsReview bool
}

// Engine applies one field mapping's transformation to a document's raw
// sections. An Engine is stateless and safe for concurrent use.
type Engine struct {
	lookup      coding.Lookup
	suggest     coding.Suggester
	aiThreshold float64
	log         zerolog.Logger
}

func NewEngine(lookup coding.Lookup, suggest coding.Suggester, aiThreshold float64, log zerolog.Logger) *Engine {
	return &Engine{
		lookup:      lookup,
		suggest:     suggest,
		aiThreshold: aiThreshold,
		log:         log.With().Str("component", "transform_engine").Logger(),
	}
}

// Apply runs the mapping's transformation over raw sections. resolved holds
// the values already produced for the same candidate record, keyed by target
// field; calculation formulas evaluate against it.
func (e *Engine) Apply(ctx context.Context, m *template.FieldMapping, raw, resolved map[string]interface{}) (Result, error) {
	spec, err := m.Spec()
	if err != nil {
		return Result{}, err
	}

	switch spec.Type {
	case template.TransformDirect:
		src, ok := e.readSource(raw, m.SourceSection, m.SourceFieldPath)
		if !ok {
			return e.missing(m)
		}
		return e.coerced(src, m)

	case template.TransformSplit:
		src, ok := e.readSource(raw, m.SourceSection, m.SourceFieldPath)
		if !ok {
			return e.missing(m)
		}
		text, err := coerceText(src)
		if err != nil {
			return Result{}, fmt.Errorf("split: %w", err)
		}
		parts := strings.Split(text, spec.Split.Delimiter)
		if spec.Split.Index >= len(parts) {
			return Result{}, fmt.Errorf("split: index %d out of range for %q", spec.Split.Index, text)
		}
		return e.coerced(strings.TrimSpace(parts[spec.Split.Index]), m)

	case template.TransformConcatenation:
		var pieces []string
		for _, f := range spec.Concatenate.Fields {
			src, ok := e.readSource(raw, m.SourceSection, f)
			if !ok {
				continue
			}
			text, err := coerceText(src)
			if err != nil {
				return Result{}, fmt.Errorf("concatenation: field %s: %w", f, err)
			}
			if text != "" {
				pieces = append(pieces, text)
			}
		}
		if len(pieces) == 0 {
			return e.missing(m)
		}
		return e.coerced(strings.Join(pieces, spec.Concatenate.Separator), m)

	case template.TransformLookup:
		src, ok := e.readSource(raw, m.SourceSection, m.SourceFieldPath)
		if !ok {
			return e.missing(m)
		}
		text, err := coerceText(src)
		if err != nil {
			return Result{}, fmt.Errorf("lookup: %w", err)
		}
		code, err := e.lookup.LookupCode(ctx, text, spec.Lookup.CodingSystem)
		if errors.Is(err, coding.ErrNoMatch) {
			// fall back to the raw value, flagged low confidence
			e.log.Debug().Str("system", spec.Lookup.CodingSystem).Str("text", text).Msg("no reference match, keeping raw value")
			res, cerr := e.coerced(text, m)
			res.NeedsReview = true
			return res, cerr
		}
		if err != nil {
			return Result{}, fmt.Errorf("lookup: %w", err)
		}
		return e.coerced(code.Code, m)

	case template.TransformAIMatch:
		src, ok := e.readSource(raw, m.SourceSection, m.SourceFieldPath)
		if !ok {
			return e.missing(m)
		}
		text, err := coerceText(src)
		if err != nil {
			return Result{}, fmt.Errorf("ai_match: %w", err)
		}
		code, err := e.suggest.Suggest(ctx, text, spec.AIMatch.CodingSystem)
		if errors.Is(err, coding.ErrNoMatch) {
			return Result{Omitted: true, NeedsReview: true}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("ai_match: %w", err)
		}
		threshold := spec.AIMatch.Threshold
		if threshold == 0 {
			threshold = e.aiThreshold
		}
		if code.Confidence < threshold {
			// withhold the suggestion, force human review
			e.log.Debug().Str("code", code.Code).Float64("confidence", code.Confidence).Float64("threshold", threshold).Msg("suggestion below threshold")
			return Result{Omitted: true, NeedsReview: true}, nil
		}
		return e.coerced(code.Code, m)

	case template.TransformCalculation:
		v, err := evalFormula(spec.Calculation.Formula, resolved)
		if err != nil {
			return Result{}, fmt.Errorf("calculation: %w", err)
		}
		return e.coerced(v, m)

	default:
		return Result{}, fmt.Errorf("unknown transformation_type %q", spec.Type)
	}
}

// readSource resolves section + field path against the raw sections. The
// second return is false when any segment is absent.
func (e *Engine) readSource(raw map[string]interface{}, section, fieldPath string) (interface{}, bool) {
	var root interface{} = raw
	if section != "" {
		v, ok := ParsePath(section).Resolve(root)
		if !ok {
			return nil, false
		}
		root = v
	}
	return ParsePath(fieldPath).Resolve(root)
}

// missing applies the mapping's absent-value policy: default if configured,
// error if required, silent omission otherwise.
func (e *Engine) missing(m *template.FieldMapping) (Result, error) {
	if m.DefaultValue != nil {
		return e.coerced(*m.DefaultValue, m)
	}
	if m.IsRequired {
		return Result{}, fmt.Errorf("required field missing at %s.%s", m.SourceSection, m.SourceFieldPath)
	}
	return Result{Omitted: true}, nil
}

func (e *Engine) coerced(v interface{}, m *template.FieldMapping) (Result, error) {
	out, err := coerce(v, m.FieldType)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: out}, nil
}
