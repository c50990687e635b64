package usecase

import (
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

// Validator maps raw oracle answers onto a category under a configurable
// policy. Decisions are reported to the optional observer.
type Validator struct {
	policy   domain.ClassificationPolicy
	observer ports.CategoryObserver
}

func NewValidator(policy domain.ClassificationPolicy, observer ports.CategoryObserver) *Validator {
	if policy.Strictness == "" {
		policy.Strictness = domain.StrictnessLenient
	}
	if policy.Keywords == nil {
		policy.Keywords = domain.DefaultKeywords()
	}
	if len(policy.KeywordOrder) == 0 {
		policy.KeywordOrder = domain.Categories()
	}
	return &Validator{policy: policy, observer: observer}
}

func (v *Validator) Policy() domain.ClassificationPolicy {
	return v.policy
}

// Validate returns one of the three categories or domain.CategoryInvalid.
// Under the permissive policy it never returns invalid.
func (v *Validator) Validate(raw string) domain.Category {
	category := v.decide(raw)
	v.observe(category)
	return category
}

// ValidateFailure is used when the oracle call itself failed.
func (v *Validator) ValidateFailure() domain.Category {
	category := domain.CategoryInvalid
	if v.policy.Fallback.Valid() {
		category = v.policy.Fallback
	}
	v.observe(category)
	return category
}

func (v *Validator) decide(raw string) domain.Category {
	cleaned := strings.TrimSpace(raw)

	for _, c := range domain.Categories() {
		if cleaned == string(c) {
			return c
		}
	}

	lowered := strings.ToLower(cleaned)
	for _, c := range domain.Categories() {
		if strings.Contains(lowered, strings.ToLower(string(c))) {
			return c
		}
	}

	if v.policy.Strictness == domain.StrictnessStrict {
		return domain.CategoryInvalid
	}

	if c, ok := v.matchKeywords(lowered); ok {
		return c
	}

	if v.policy.Strictness == domain.StrictnessPermissive && v.policy.Fallback.Valid() {
		return v.policy.Fallback
	}
	return domain.CategoryInvalid
}

func (v *Validator) matchKeywords(lowered string) (domain.Category, bool) {
	if lowered == "" {
		return "", false
	}
	for _, c := range v.policy.KeywordOrder {
		for _, kw := range v.policy.Keywords[c] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lowered, kw) {
				return c, true
			}
		}
	}
	return "", false
}

func (v *Validator) observe(category domain.Category) {
	if v.observer != nil {
		v.observer.ObserveCategory(category, v.policy.Strictness)
	}
}
