package usecase

import (
	"math"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

var requiredFields = map[domain.Category][]string{
	domain.CategoryIncome:     {"employee_name", "employer_name", "annual_income"},
	domain.CategorySettlement: {"buyer_name", "seller_name", "property_address", "sale_price"},
	domain.CategoryPurchase:   {"buyer_name", "seller_name", "property_address", "purchase_price"},
}

// RequiredFields lists the fields the quality gate checks for a category.
func RequiredFields(category domain.Category) []string {
	return append([]string(nil), requiredFields[category]...)
}

// Gate scores extracted records and decides whether they may be persisted.
type Gate struct {
	cfg domain.GateConfig
}

func NewGate(cfg domain.GateConfig) *Gate {
	def := domain.DefaultGateConfig()
	if cfg.Penalty <= 0 {
		cfg.Penalty = def.Penalty
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		cfg.Threshold = def.Threshold
	}
	return &Gate{cfg: cfg}
}

func (g *Gate) Enabled() bool {
	return g.cfg.Enabled
}

// Check scores a record. Zero, false and blank values count as missing.
func (g *Gate) Check(category domain.Category, record domain.Record) domain.GateResult {
	if !g.cfg.Enabled {
		return domain.GateResult{Score: 1, Missing: []string{}, Passed: true, Skipped: true}
	}

	missing := []string{}
	for _, field := range requiredFields[category] {
		if !record.Has(field) {
			missing = append(missing, field)
		}
	}

	score := 1 - g.cfg.Penalty*float64(len(missing))
	score = math.Max(0, math.Round(score*100)/100)

	return domain.GateResult{
		Score:   score,
		Missing: missing,
		Passed:  len(missing) == 0 && score >= g.cfg.Threshold,
	}
}
