package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TABLE_BACKEND", "STORAGE_BACKEND", "ORACLE_BACKEND", "KB_SYNC_BACKEND", "GATE_THRESHOLD", "GATE_PENALTY", "ORACLE_RETRY_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.TableBackend != "postgres" || cfg.StorageBackend != "localfs" || cfg.OracleBackend != "ollama" || cfg.KBSyncBackend != "nats" {
		t.Fatalf("unexpected backend defaults %+v", cfg)
	}
	if cfg.GateThreshold != 0.6 || cfg.GatePenalty != 0.2 {
		t.Fatalf("expected gate defaults 0.6/0.2, got %v/%v", cfg.GateThreshold, cfg.GatePenalty)
	}
	if cfg.OracleRetryMaxAttempts != 1 {
		t.Fatalf("expected single oracle attempt by default, got %d", cfg.OracleRetryMaxAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("GATE_ENABLED", "false")
	t.Setenv("GATE_THRESHOLD", "0.75")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg := Load()
	if cfg.GateEnabled {
		t.Fatalf("expected gate disabled")
	}
	if cfg.GateThreshold != 0.75 {
		t.Fatalf("expected threshold 0.75, got %v", cfg.GateThreshold)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ChunkSize != 900 {
		t.Fatalf("expected invalid chunk size to fall back to 900, got %d", cfg.ChunkSize)
	}
}

func TestClassificationPolicyFromEnv(t *testing.T) {
	t.Setenv("CLASSIFICATION_STRICTNESS", "strict")
	t.Setenv("CLASSIFICATION_FALLBACK", "none")
	t.Setenv("CLASSIFICATION_POLICY_FILE", "")

	policy, err := Load().ClassificationPolicy()
	if err != nil {
		t.Fatalf("ClassificationPolicy() error = %v", err)
	}
	if policy.Strictness != domain.StrictnessStrict || policy.Fallback != "" {
		t.Fatalf("unexpected policy %+v", policy)
	}
}

func TestClassificationPolicyRejectsPermissiveWithoutFallback(t *testing.T) {
	t.Setenv("CLASSIFICATION_STRICTNESS", "permissive")
	t.Setenv("CLASSIFICATION_FALLBACK", "none")
	t.Setenv("CLASSIFICATION_POLICY_FILE", "")

	if _, err := Load().ClassificationPolicy(); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestClassificationPolicyFileOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `strictness: permissive
fallback: Purchase Agreements
keyword_order: [Purchase Agreements, Settlement Documents]
keywords:
  Purchase Agreements: [" Offer To Purchase ", escrow]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	t.Setenv("CLASSIFICATION_STRICTNESS", "strict")
	t.Setenv("CLASSIFICATION_FALLBACK", "")
	t.Setenv("CLASSIFICATION_POLICY_FILE", path)

	policy, err := Load().ClassificationPolicy()
	if err != nil {
		t.Fatalf("ClassificationPolicy() error = %v", err)
	}
	if policy.Strictness != domain.StrictnessPermissive || policy.Fallback != domain.CategoryPurchase {
		t.Fatalf("unexpected policy %+v", policy)
	}
	if len(policy.KeywordOrder) != 2 || policy.KeywordOrder[0] != domain.CategoryPurchase {
		t.Fatalf("unexpected keyword order %v", policy.KeywordOrder)
	}
	words := policy.Keywords[domain.CategoryPurchase]
	if len(words) != 2 || words[0] != "offer to purchase" {
		t.Fatalf("expected normalized keywords, got %v", words)
	}
	if _, ok := policy.Keywords[domain.CategorySettlement]; ok {
		t.Fatalf("expected file keywords to replace defaults")
	}
}

func TestClassificationPolicyFileFailsSchema(t *testing.T) {
	cases := map[string]string{
		"unknown strictness": "strictness: loose\n",
		"unknown category":   "keywords:\n  Leases: [lease]\n",
		"extra key":          "threshold: 0.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write policy: %v", err)
			}
			t.Setenv("CLASSIFICATION_POLICY_FILE", path)

			if _, err := Load().ClassificationPolicy(); !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}
