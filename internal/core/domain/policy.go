package domain

import (
	"fmt"
	"strings"
)

type Strictness string

const (
	StrictnessStrict     Strictness = "strict"
	StrictnessLenient    Strictness = "lenient"
	StrictnessPermissive Strictness = "permissive"
)

func ParseStrictness(raw string) (Strictness, error) {
	switch s := Strictness(strings.ToLower(strings.TrimSpace(raw))); s {
	case StrictnessStrict, StrictnessLenient, StrictnessPermissive:
		return s, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse strictness", fmt.Errorf("unknown strictness %q", raw))
	}
}

// ClassificationPolicy drives how raw oracle answers map onto categories.
type ClassificationPolicy struct {
	Strictness Strictness
	// Keywords are consulted under lenient and permissive strictness.
	Keywords map[Category][]string
	// KeywordOrder fixes which keyword table wins when several match.
	KeywordOrder []Category
	// Fallback is returned by the permissive policy and on oracle failure.
	// An empty fallback means "invalid".
	Fallback Category
}

func DefaultClassificationPolicy() ClassificationPolicy {
	return ClassificationPolicy{
		Strictness:   StrictnessLenient,
		Keywords:     DefaultKeywords(),
		KeywordOrder: Categories(),
		Fallback:     CategorySettlement,
	}
}

func DefaultKeywords() map[Category][]string {
	return map[Category][]string{
		CategorySettlement: {"settlement", "closing", "hud", "escrow", "title", "transaction", "payment", "money", "financial", "cash", "funds"},
		CategoryIncome:     {"income", "salary", "employment", "employer", "employee", "wage", "pay stub", "paystub", "w-2", "tax return", "verification"},
		CategoryPurchase:   {"purchase", "sale", "offer", "buyer", "seller", "acquisition", "agreement", "contract", "earnest"},
	}
}

func (p ClassificationPolicy) Validate() error {
	if _, err := ParseStrictness(string(p.Strictness)); err != nil {
		return err
	}
	if p.Fallback != "" && !p.Fallback.Valid() {
		return WrapError(ErrInvalidInput, "validate policy", fmt.Errorf("fallback %q is not a known category", p.Fallback))
	}
	if p.Strictness == StrictnessPermissive && p.Fallback == "" {
		return WrapError(ErrInvalidInput, "validate policy", fmt.Errorf("permissive policy requires a fallback category"))
	}
	for _, c := range p.KeywordOrder {
		if !c.Valid() {
			return WrapError(ErrInvalidInput, "validate policy", fmt.Errorf("keyword order names unknown category %q", c))
		}
	}
	return nil
}
