package usecase

import (
	"context"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

// ExtractPrompter requests the category schema from the oracle and returns
// its free text answer.
type ExtractPrompter struct {
	oracle ports.Oracle
}

func NewExtractPrompter(oracle ports.Oracle) *ExtractPrompter {
	return &ExtractPrompter{oracle: oracle}
}

func (p *ExtractPrompter) Extract(ctx context.Context, category domain.Category, text string) (string, error) {
	resp, err := p.oracle.Invoke(ctx, buildExtractionPrompt(category, text))
	if err != nil {
		return "", domain.WrapError(domain.ErrOracle, "extract fields", err)
	}
	return resp.Text(), nil
}
