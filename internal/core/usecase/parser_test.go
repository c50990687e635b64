package usecase

import (
	"encoding/json"
	"testing"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

func TestParseExtractionDirect(t *testing.T) {
	rec, tier := ParseExtraction(`{"employee_name":"Jane Doe","annual_income":85000}`, "src")
	if tier != ParseDirect {
		t.Fatalf("expected direct tier, got %s", tier)
	}
	if rec["employee_name"] != "Jane Doe" {
		t.Fatalf("unexpected employee_name: %v", rec["employee_name"])
	}
	if n, ok := rec["annual_income"].(json.Number); !ok || n.String() != "85000" {
		t.Fatalf("expected json.Number 85000, got %#v", rec["annual_income"])
	}
}

func TestParseExtractionBraces(t *testing.T) {
	raw := "Here is the data:\n```json\n{\"buyer_name\": \"A\", \"meta\": {\"x\": 1}}\n```\nThanks"
	rec, tier := ParseExtraction(raw, "src")
	if tier != ParseBraces {
		t.Fatalf("expected braces tier, got %s", tier)
	}
	if rec["buyer_name"] != "A" {
		t.Fatalf("unexpected buyer_name: %v", rec["buyer_name"])
	}
}

func TestParseExtractionFallback(t *testing.T) {
	cases := []string{"no json here", "[1,2,3]", "null", "{broken", "{\"a\": 1 trailing"}
	for _, raw := range cases {
		rec, tier := ParseExtraction(raw, "source text")
		if tier != ParseFallback {
			t.Fatalf("ParseExtraction(%q): expected fallback, got %s", raw, tier)
		}
		if rec[domain.FieldRawText] != raw {
			t.Fatalf("expected raw_text to keep oracle output, got %v", rec[domain.FieldRawText])
		}
		if rec[domain.FieldTextPreview] != "source text" {
			t.Fatalf("expected preview of source text, got %v", rec[domain.FieldTextPreview])
		}
	}
}

func TestParseExtractionFallbackPreviewTruncated(t *testing.T) {
	src := make([]rune, 1500)
	for i := range src {
		src[i] = 'ж'
	}
	rec, _ := ParseExtraction("nope", string(src))
	preview, _ := rec[domain.FieldTextPreview].(string)
	if got := len([]rune(preview)); got != 1000 {
		t.Fatalf("expected preview of 1000 runes, got %d", got)
	}
}
