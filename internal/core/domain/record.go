package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Metadata fields injected into every record before persistence.
const (
	FieldStoragePath    = "document_s3_path"
	FieldClassification = "classification"
	FieldFilename       = "filename"

	FieldConfidence = "confidence_score"
	FieldMissing    = "missing_fields"

	FieldRawText        = "raw_text"
	FieldTextPreview    = "extracted_text_preview"
	FieldError          = "error"
	FieldContentPreview = "raw_content_preview"
)

// Record is a structured extraction result keyed by field name.
type Record map[string]any

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field holds a non-blank value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && !IsBlank(v)
}

// Text renders a field the way table columns store it. Absent fields
// render as fallback.
func (r Record) Text(field, fallback string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return fallback
	}
	return Stringify(v)
}

func (r Record) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// IsBlank treats nil, false, zero numbers, whitespace-only strings and empty
// collections as missing.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case float32:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// Stringify renders scalar values as plain text and collections as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any, []string, map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}
