package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

//go:embed policy.schema.json
var policySchema []byte

type policyFile struct {
	Strictness   string              `json:"strictness"`
	Fallback     *string             `json:"fallback"`
	KeywordOrder []string            `json:"keyword_order"`
	Keywords     map[string][]string `json:"keywords"`
}

// ClassificationPolicy builds the validation policy from env keys, then
// applies CLASSIFICATION_POLICY_FILE on top when it is set.
func (c Config) ClassificationPolicy() (domain.ClassificationPolicy, error) {
	policy := domain.DefaultClassificationPolicy()

	if strings.TrimSpace(c.ClassificationStrictness) != "" {
		s, err := domain.ParseStrictness(c.ClassificationStrictness)
		if err != nil {
			return domain.ClassificationPolicy{}, err
		}
		policy.Strictness = s
	}
	fallback, err := parseFallback(c.ClassificationFallback)
	if err != nil {
		return domain.ClassificationPolicy{}, err
	}
	policy.Fallback = fallback

	if c.ClassificationPolicyFile != "" {
		data, err := os.ReadFile(c.ClassificationPolicyFile)
		if err != nil {
			return domain.ClassificationPolicy{}, fmt.Errorf("read policy file: %w", err)
		}
		if policy, err = applyPolicyFile(policy, data); err != nil {
			return domain.ClassificationPolicy{}, err
		}
	}

	if err := policy.Validate(); err != nil {
		return domain.ClassificationPolicy{}, err
	}
	return policy, nil
}

func (c Config) GateConfig() domain.GateConfig {
	return domain.GateConfig{
		Enabled:   c.GateEnabled,
		Threshold: c.GateThreshold,
		Penalty:   c.GatePenalty,
	}
}

func (c Config) CostModel() domain.CostModel {
	return domain.CostModel{BaseFee: c.CostBaseFee, PerSecond: c.CostPerSecond}
}

func parseFallback(raw string) (domain.Category, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "none", "invalid":
		return "", nil
	}
	category, ok := domain.ParseCategory(raw)
	if !ok || !category.Valid() {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse fallback", fmt.Errorf("unknown category %q", raw))
	}
	return category, nil
}

func applyPolicyFile(policy domain.ClassificationPolicy, data []byte) (domain.ClassificationPolicy, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return policy, domain.WrapError(domain.ErrInvalidInput, "parse policy file", err)
	}
	if raw == nil {
		return policy, nil
	}

	// Round-trip through JSON so the validator sees JSON-typed values.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return policy, domain.WrapError(domain.ErrInvalidInput, "parse policy file", err)
	}
	if err := validatePolicyDocument(asJSON); err != nil {
		return policy, domain.WrapError(domain.ErrInvalidInput, "validate policy file", err)
	}

	var file policyFile
	if err := json.Unmarshal(asJSON, &file); err != nil {
		return policy, domain.WrapError(domain.ErrInvalidInput, "parse policy file", err)
	}

	if file.Strictness != "" {
		policy.Strictness = domain.Strictness(file.Strictness)
	}
	if file.Fallback != nil {
		policy.Fallback = domain.Category(*file.Fallback)
	}
	if len(file.KeywordOrder) > 0 {
		order := make([]domain.Category, 0, len(file.KeywordOrder))
		for _, c := range file.KeywordOrder {
			order = append(order, domain.Category(c))
		}
		policy.KeywordOrder = order
	}
	if len(file.Keywords) > 0 {
		keywords := make(map[domain.Category][]string, len(file.Keywords))
		for c, words := range file.Keywords {
			lowered := make([]string, 0, len(words))
			for _, w := range words {
				lowered = append(lowered, strings.ToLower(strings.TrimSpace(w)))
			}
			keywords[domain.Category(c)] = lowered
		}
		policy.Keywords = keywords
	}
	return policy, nil
}

func validatePolicyDocument(doc []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("policy.schema.json", bytes.NewReader(policySchema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("policy.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("policy does not match schema: %w", err)
	}
	return nil
}
