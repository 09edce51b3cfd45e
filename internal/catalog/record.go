// Package catalog defines the fund Record model and a SQLite-backed store
// for the catalog snapshot produced by the data-acquisition pipeline.
// Records are read-only from the answering engine's point of view: the
// engine borrows them during index builds and never mutates them.
package catalog

// Canonical field names recognized across the chunker, the fallback
// extractor, and the query vocabulary. Order is the render order of the
// comprehensive passage.
const (
	FieldExpenseRatio = "expense_ratio"
	FieldExitLoad     = "exit_load"
	FieldMinimumSIP   = "minimum_sip"
	FieldLockIn       = "lock_in"
	FieldRiskometer   = "riskometer"
	FieldBenchmark    = "benchmark"
)

// FieldNames is the ordered set of canonical fund fields.
var FieldNames = []string{
	FieldExpenseRatio,
	FieldExitLoad,
	FieldMinimumSIP,
	FieldLockIn,
	FieldRiskometer,
	FieldBenchmark,
}

// FieldLabels maps canonical field names to the human-readable labels used
// in passage text and templated answers.
var FieldLabels = map[string]string{
	FieldExpenseRatio: "Expense Ratio",
	FieldExitLoad:     "Exit Load",
	FieldMinimumSIP:   "Minimum SIP",
	FieldLockIn:       "Lock-in Period",
	FieldRiskometer:   "Riskometer",
	FieldBenchmark:    "Benchmark",
}

// ValidationValid is the validation status of records that passed the
// acquisition pipeline's field validators. Only valid records are indexed.
const ValidationValid = "valid"

// Record is one catalog entry: a fund with its fixed field set, the URL the
// data was sourced from, and the acquisition pipeline's validation verdict.
type Record struct {
	// Name is the full fund name and the unique key of the record.
	Name string `json:"fund_name"`

	// ExpenseRatio is the fund's total expense ratio (e.g. "0.63%").
	ExpenseRatio string `json:"expense_ratio,omitempty"`

	// ExitLoad is the redemption charge (e.g. "Nil", "1% within 365 days").
	ExitLoad string `json:"exit_load,omitempty"`

	// MinimumSIP is the minimum systematic investment amount (e.g. "₹1,000").
	MinimumSIP string `json:"minimum_sip,omitempty"`

	// LockIn is the lock-in period (e.g. "3 years", "None").
	LockIn string `json:"lock_in,omitempty"`

	// Riskometer is the regulatory risk rating (e.g. "Very High").
	Riskometer string `json:"riskometer,omitempty"`

	// Benchmark is the index the fund is benchmarked against.
	Benchmark string `json:"benchmark,omitempty"`

	// SourceURL is the provenance reference the data was scraped from.
	// Required for citation; non-empty on every valid record.
	SourceURL string `json:"source_url"`

	// ScrapedAt is the acquisition timestamp in RFC3339 form.
	ScrapedAt string `json:"scraped_at,omitempty"`

	// ValidationStatus is the acquisition pipeline's verdict ("valid" or a
	// failure reason). Only records with status "valid" participate in
	// index builds.
	ValidationStatus string `json:"validation_status"`
}

// Valid reports whether the record passed acquisition validation and may
// participate in indexing.
func (r Record) Valid() bool {
	return r.ValidationStatus == ValidationValid
}

// Field returns the value of the named canonical field, or empty string if
// the field is unknown or absent.
func (r Record) Field(name string) string {
	switch name {
	case FieldExpenseRatio:
		return r.ExpenseRatio
	case FieldExitLoad:
		return r.ExitLoad
	case FieldMinimumSIP:
		return r.MinimumSIP
	case FieldLockIn:
		return r.LockIn
	case FieldRiskometer:
		return r.Riskometer
	case FieldBenchmark:
		return r.Benchmark
	default:
		return ""
	}
}
