package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chartdesk/chartdesk/internal/domain/template"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Date layouts OCR output actually shows up in. ISO first, then the local
// DD/MM convention, then free-text month forms.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"02 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// coerce converts a raw extracted value to the Go type the target field
// expects: string, float64, time.Time, bool, or json.RawMessage.
func coerce(v interface{}, fieldType string) (interface{}, error) {
	switch fieldType {
	case template.FieldText:
		return coerceText(v)
	case template.FieldNumber:
		return coerceNumber(v)
	case template.FieldDate, template.FieldDateTime:
		return coerceDate(v)
	case template.FieldBoolean:
		return coerceBool(v)
	case template.FieldJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cannot encode value as json: %w", err)
		}
		return json.RawMessage(raw), nil
	default:
		return nil, fmt.Errorf("unknown field_type %q", fieldType)
	}
}

func coerceText(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case time.Time:
		return val.Format("2006-01-02"), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("cannot render %T as text", v)
		}
		return string(raw), nil
	}
}

// coerceNumber tolerates embedded units and surrounding text: "120 mmHg"
// yields 120, "36.8 C" yields 36.8.
func coerceNumber(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		match := numberPattern.FindString(val)
		if match == "" {
			return 0, fmt.Errorf("no numeric value in %q", val)
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse number from %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func coerceDate(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", val)
	default:
		return time.Time{}, fmt.Errorf("expected date, got %T", v)
	}
}

func coerceBool(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "1", "positive":
			return true, nil
		case "false", "no", "n", "0", "negative":
			return false, nil
		}
		return false, fmt.Errorf("unrecognized boolean %q", val)
	case float64:
		return val != 0, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}
