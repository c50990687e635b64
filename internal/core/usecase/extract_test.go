package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

func TestExtractPrompterUsesCategorySchema(t *testing.T) {
	oracle := &oracleFake{extractAnswer: `{"employee_name":"Jane"}`, chunked: true}
	p := NewExtractPrompter(oracle)

	got, err := p.Extract(context.Background(), domain.CategoryIncome, "pay stub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"employee_name":"Jane"}` {
		t.Fatalf("expected joined chunks, got %q", got)
	}
	prompt := oracle.prompts[0]
	if !strings.Contains(prompt, `"annual_income": 0`) {
		t.Fatalf("expected numeric placeholder for annual_income, got %q", prompt)
	}
	if !strings.HasSuffix(prompt, "pay stub\n") {
		t.Fatalf("expected document text at prompt end, got %q", prompt)
	}
}

func TestExtractPrompterFallsBackToGenericSchema(t *testing.T) {
	oracle := &oracleFake{extractAnswer: "{}"}
	p := NewExtractPrompter(oracle)

	if _, err := p.Extract(context.Background(), domain.CategoryInvalid, "memo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(oracle.prompts[0], `"parties_involved"`) {
		t.Fatalf("expected generic schema, got %q", oracle.prompts[0])
	}
}

func TestExtractPrompterWrapsOracleError(t *testing.T) {
	p := NewExtractPrompter(&oracleFake{extractErr: errors.New("boom")})

	_, err := p.Extract(context.Background(), domain.CategoryPurchase, "offer")
	if !domain.IsKind(err, domain.ErrOracle) {
		t.Fatalf("expected ErrOracle, got %v", err)
	}
}

func TestExtractionPromptTruncatesText(t *testing.T) {
	prompt := buildExtractionPrompt(domain.CategorySettlement, strings.Repeat("é", extractionTextLimit+50))
	if n := strings.Count(prompt, "é"); n != extractionTextLimit {
		t.Fatalf("expected %d runes of text, got %d", extractionTextLimit, n)
	}
}
