package domain

import "strings"

type Category string

const (
	CategorySettlement Category = "Settlement Documents"
	CategoryIncome     Category = "Income Verifications"
	CategoryPurchase   Category = "Purchase Agreements"

	// CategoryInvalid marks a document that fits none of the known types.
	CategoryInvalid Category = "INVALID_DOCUMENT"
)

// Categories lists the known document types in canonical order.
func Categories() []Category {
	return []Category{CategorySettlement, CategoryIncome, CategoryPurchase}
}

func (c Category) Valid() bool {
	switch c {
	case CategorySettlement, CategoryIncome, CategoryPurchase:
		return true
	default:
		return false
	}
}

// Folder is the object storage prefix for documents of this category.
func (c Category) Folder() string {
	if !c.Valid() {
		return "unclassified"
	}
	return strings.ToLower(strings.ReplaceAll(string(c), " ", "_"))
}

// ParseCategory accepts a category name or its folder form, ignoring case.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, c := range Categories() {
		if strings.EqualFold(raw, string(c)) || strings.EqualFold(raw, c.Folder()) {
			return c, true
		}
	}
	return "", false
}
