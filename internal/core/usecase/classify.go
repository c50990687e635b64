package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

// ClassifyPrompter asks the oracle for a category and returns its answer
// verbatim. A blank answer counts as an oracle failure.
type ClassifyPrompter struct {
	oracle ports.Oracle
}

func NewClassifyPrompter(oracle ports.Oracle) *ClassifyPrompter {
	return &ClassifyPrompter{oracle: oracle}
}

func (p *ClassifyPrompter) Classify(ctx context.Context, text string) (string, error) {
	resp, err := p.oracle.Invoke(ctx, buildClassificationPrompt(text))
	if err != nil {
		return "", domain.WrapError(domain.ErrOracle, "classify document", err)
	}
	answer := resp.Text()
	if answer == "" {
		return "", domain.WrapError(domain.ErrOracle, "classify document", errEmptyAnswer)
	}
	return answer, nil
}

var errEmptyAnswer = errors.New("oracle returned an empty answer")

// ClassifyTextUseCase is the standalone classifier exposed to tool callers.
type ClassifyTextUseCase struct {
	prompter  *ClassifyPrompter
	validator *Validator
}

func NewClassifyTextUseCase(prompter *ClassifyPrompter, validator *Validator) *ClassifyTextUseCase {
	return &ClassifyTextUseCase{prompter: prompter, validator: validator}
}

// ClassifyText returns the validated category. On oracle failure the
// policy's failure category is returned together with the error.
func (uc *ClassifyTextUseCase) ClassifyText(ctx context.Context, text string) (domain.Category, error) {
	if strings.TrimSpace(text) == "" {
		return domain.CategoryInvalid, nil
	}
	raw, err := uc.prompter.Classify(ctx, text)
	if err != nil {
		return uc.validator.ValidateFailure(), err
	}
	return uc.validator.Validate(raw), nil
}
