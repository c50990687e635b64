package domain

import "time"

type Table string

const (
	TableIncomeVerification Table = "income_verification"
	TableSettlement         Table = "settlement"
	TablePurchaseAgreement  Table = "purchase_agreement"
	TableProperty           Table = "property"
	TableOwnerProfile       Table = "owner_profile"
)

func Tables() []Table {
	return []Table{
		TableIncomeVerification,
		TableOwnerProfile,
		TableProperty,
		TablePurchaseAgreement,
		TableSettlement,
	}
}

func ParseTable(raw string) (Table, bool) {
	for _, t := range Tables() {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// Shared columns present on every table.
const (
	ColumnRawData   = "raw_extracted_data"
	ColumnTimestamp = "timestamp"
)

// TableSchema describes the column layout of one logical table.
type TableSchema struct {
	Table Table
	// IDColumn holds the generated primary identifier.
	IDColumn string
	// NumericID is true when the target schema expects a numeric id.
	NumericID bool
	// SortColumn is the secondary attribute; SortNumeric marks a numeric one.
	SortColumn  string
	SortNumeric bool
	// Fields are projected from the record in order.
	Fields []string
}

// Columns lists every column in storage order.
func (s TableSchema) Columns() []string {
	out := make([]string, 0, len(s.Fields)+4)
	out = append(out, s.IDColumn, s.SortColumn)
	out = append(out, s.Fields...)
	out = append(out, ColumnRawData, ColumnTimestamp)
	return out
}

var schemas = map[Table]TableSchema{
	TableIncomeVerification: {
		Table:      TableIncomeVerification,
		IDColumn:   "buyer_id",
		SortColumn: "name",
		Fields: []string{
			"employee_name", "employer_name", "annual_income", "monthly_income",
			"employment_start_date", "employment_status", "job_title", "verification_date",
			FieldStoragePath,
		},
	},
	TableOwnerProfile: {
		Table:      TableOwnerProfile,
		IDColumn:   "owner_id",
		SortColumn: "owner_name",
		Fields: []string{
			"full_name", "first_name", "last_name", "email", "phone", "address",
			"city", "state", "zip_code", "ssn_last_four", "date_of_birth",
			FieldStoragePath,
		},
	},
	TableProperty: {
		Table:      TableProperty,
		IDColumn:   "property_id",
		SortColumn: "singpost",
		Fields: []string{
			"property_address", "city", "state", "zip_code", "property_type",
			"square_footage", "bedrooms", "bathrooms", "lot_size", "year_built",
			"property_value", "apn", FieldStoragePath,
		},
	},
	TablePurchaseAgreement: {
		Table:       TablePurchaseAgreement,
		IDColumn:    "agreement_id",
		NumericID:   true,
		SortColumn:  "property_id",
		SortNumeric: true,
		Fields: []string{
			"buyer_name", "seller_name", "property_address", "purchase_price",
			"earnest_money", "closing_date", "contract_date", "financing_type",
			"loan_amount", "down_payment", "contingencies", "inspection_period",
			FieldStoragePath,
		},
	},
	TableSettlement: {
		Table:       TableSettlement,
		IDColumn:    "settlement_id",
		SortColumn:  "property_id",
		SortNumeric: true,
		Fields: []string{
			"buyer_name", "seller_name", "property_address", "settlement_date",
			"sale_price", "loan_amount", "cash_to_close", "title_company", "lender_name",
			"real_estate_taxes", "homeowners_insurance", "title_insurance",
			"recording_fees", "transfer_taxes", FieldStoragePath,
		},
	},
}

func SchemaFor(t Table) (TableSchema, bool) {
	s, ok := schemas[t]
	return s, ok
}

// Row is one table insert keyed by column name. Values are strings except
// numeric ids and sort attributes, which are int64.
type Row map[string]any

type TableStatus struct {
	Table     Table  `json:"table"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	ItemCount int64  `json:"item_count"`
	SizeBytes int64  `json:"size_bytes"`
	Error     string `json:"error,omitempty"`
}

type WrittenRow struct {
	Table Table  `json:"table"`
	ID    string `json:"id"`
}

// Persisted reports the rows one routing call wrote.
type Persisted struct {
	Primary       WrittenRow   `json:"primary"`
	Derived       []WrittenRow `json:"derived,omitempty"`
	DerivedErrors []string     `json:"derived_errors,omitempty"`
	WrittenAt     time.Time    `json:"written_at"`
}

func (p Persisted) IDs() []string {
	out := make([]string, 0, 1+len(p.Derived))
	if p.Primary.ID != "" {
		out = append(out, p.Primary.ID)
	}
	for _, d := range p.Derived {
		out = append(out, d.ID)
	}
	return out
}

// Sheet is a tabular export of one table.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

var numericFields = map[string]struct{}{
	"annual_income": {}, "monthly_income": {},
	"sale_price": {}, "loan_amount": {}, "cash_to_close": {},
	"real_estate_taxes": {}, "homeowners_insurance": {}, "title_insurance": {},
	"recording_fees": {}, "transfer_taxes": {},
	"purchase_price": {}, "earnest_money": {}, "down_payment": {},
	"square_footage": {}, "bedrooms": {}, "bathrooms": {}, "year_built": {},
	"property_value": {},
}

// FieldDefault is the column value stored when a record lacks the field.
func FieldDefault(field string) string {
	if _, ok := numericFields[field]; ok {
		return "0"
	}
	return ""
}
