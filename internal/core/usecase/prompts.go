package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

const (
	classificationTextLimit = 3000
	extractionTextLimit     = 4000
	previewTextLimit        = 1000
	shortTextPreviewLimit   = 500
)

const jsonOnlyInstruction = "Important: Return ONLY valid JSON. If any field is not found, use empty string for text fields or 0 for numeric fields."

func buildClassificationPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are a document classifier for real estate documents. Classify this document into EXACTLY one of these 3 categories:\n\n")
	for i, c := range domain.Categories() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString(`
Rules:
- If the document mentions income, salary, employment verification, pay stubs, or tax returns, classify it as "Income Verifications"
- If the document mentions settlement, closing, HUD-1, escrow, title transfer, or property transaction details, classify it as "Settlement Documents"
- If the document mentions purchase, sale, offer, buyer, seller, or property acquisition terms, classify it as "Purchase Agreements"
- Respond with ONLY the exact category name from the list above
- Only use "INVALID_DOCUMENT" if the content is completely unrelated to real estate transactions
- Do not provide explanations, descriptions, or any other text

Document Content:
`)
	b.WriteString(truncateRunes(text, classificationTextLimit))
	b.WriteString("\n")
	return b.String()
}

type schemaField struct {
	name     string
	describe string
	numeric  bool
}

var extractionSchemas = map[domain.Category]struct {
	subject string
	fields  []schemaField
}{
	domain.CategoryIncome: {
		subject: "income verification document",
		fields: []schemaField{
			{name: "employee_name", describe: "Full name of employee"},
			{name: "employer_name", describe: "Name of employer/company"},
			{name: "annual_income", numeric: true},
			{name: "monthly_income", numeric: true},
			{name: "employment_start_date", describe: "Start date of employment"},
			{name: "employment_status", describe: "Employment status (full-time, part-time, etc.)"},
			{name: "job_title", describe: "Job title/position"},
			{name: "verification_date", describe: "Date of verification"},
		},
	},
	domain.CategorySettlement: {
		subject: "settlement document",
		fields: []schemaField{
			{name: "buyer_name", describe: "Name of buyer"},
			{name: "seller_name", describe: "Name of seller"},
			{name: "property_address", describe: "Full property address"},
			{name: "settlement_date", describe: "Date of settlement/closing"},
			{name: "sale_price", numeric: true},
			{name: "loan_amount", numeric: true},
			{name: "cash_to_close", numeric: true},
			{name: "title_company", describe: "Title company name"},
			{name: "lender_name", describe: "Lender/bank name"},
			{name: "real_estate_taxes", numeric: true},
			{name: "homeowners_insurance", numeric: true},
			{name: "title_insurance", numeric: true},
			{name: "recording_fees", numeric: true},
			{name: "transfer_taxes", numeric: true},
		},
	},
	domain.CategoryPurchase: {
		subject: "purchase agreement",
		fields: []schemaField{
			{name: "buyer_name", describe: "Name of buyer"},
			{name: "seller_name", describe: "Name of seller"},
			{name: "property_address", describe: "Full property address"},
			{name: "purchase_price", numeric: true},
			{name: "earnest_money", numeric: true},
			{name: "closing_date", describe: "Scheduled closing date"},
			{name: "contract_date", describe: "Contract/agreement date"},
			{name: "financing_type", describe: "Type of financing (conventional, FHA, cash, etc.)"},
			{name: "loan_amount", numeric: true},
			{name: "down_payment", numeric: true},
			{name: "contingencies", describe: "List of contingencies"},
			{name: "inspection_period", describe: "Inspection period duration"},
			{name: "property_type", describe: "Type of property (single family, condo, etc.)"},
			{name: "square_footage", numeric: true},
			{name: "bedrooms", numeric: true},
			{name: "bathrooms", numeric: true},
			{name: "lot_size", describe: "Lot size"},
			{name: "year_built", numeric: true},
		},
	},
}

var genericSchema = []schemaField{
	{name: "document_type", describe: "Type of document"},
	{name: "parties_involved", describe: "Names of parties involved"},
	{name: "property_address", describe: "Property address if mentioned"},
	{name: "key_dates", describe: "Important dates mentioned"},
	{name: "financial_amounts", describe: "Any monetary amounts mentioned"},
	{name: "summary", describe: "Brief summary of document content"},
}

// SchemaFields lists the extraction fields requested for a category.
func SchemaFields(category domain.Category) []string {
	fields := genericSchema
	if schema, ok := extractionSchemas[category]; ok {
		fields = schema.fields
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.name)
	}
	return out
}

func buildExtractionPrompt(category domain.Category, text string) string {
	fields := genericSchema
	intro := "Extract any relevant real estate information from this document and return as valid JSON:"
	if schema, ok := extractionSchemas[category]; ok {
		fields = schema.fields
		intro = fmt.Sprintf("Extract the following information from this %s and return as valid JSON:", schema.subject)
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n{\n")
	for i, f := range fields {
		value := "0"
		if !f.numeric {
			value = fmt.Sprintf("%q", f.describe)
		}
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %q: %s%s\n", f.name, value, sep)
	}
	b.WriteString("}\n\n")
	b.WriteString(jsonOnlyInstruction)
	b.WriteString("\n\nDocument Content:\n")
	b.WriteString(truncateRunes(text, extractionTextLimit))
	b.WriteString("\n")
	return b.String()
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
