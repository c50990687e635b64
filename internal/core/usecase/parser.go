package usecase

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

type ParseTier int

const (
	ParseDirect ParseTier = iota + 1
	ParseBraces
	ParseFallback
)

func (t ParseTier) String() string {
	switch t {
	case ParseDirect:
		return "direct"
	case ParseBraces:
		return "braces"
	case ParseFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ParseExtraction recovers a record from oracle output. It always returns a
// record: when no JSON object can be found the raw answer is kept under
// raw_text next to a preview of the source text.
func ParseExtraction(raw, sourceText string) (domain.Record, ParseTier) {
	if rec, ok := decodeObject(raw); ok {
		return rec, ParseDirect
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if rec, ok := decodeObject(raw[start : end+1]); ok {
			return rec, ParseBraces
		}
	}

	return domain.Record{
		domain.FieldRawText:     raw,
		domain.FieldTextPreview: truncateRunes(sourceText, previewTextLimit),
	}, ParseFallback
}

func decodeObject(raw string) (domain.Record, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var rec map[string]any
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return domain.Record(rec), true
}
