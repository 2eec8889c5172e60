// Package validation checks request payloads. JSON bodies are first checked
// against the embedded schemas for shape; the typed checks below then cover
// the rules a schema cannot express, such as decimal signs and rate ranges.
package validation

import (
	"embed"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"gryork/pkg/types"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	SchemaNewCase           = "new_case"
	SchemaQuotation         = "quotation"
	SchemaTransition        = "transition"
	SchemaSelection         = "selection"
	SchemaCareerApplication = "career_application"
	SchemaApplicationReview = "application_review"
)

var maxInterestRate = decimal.NewFromInt(100)

type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(entries))}
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}

		v.schemas[strings.TrimSuffix(entry.Name(), ".json")] = schema
	}

	return v, nil
}

// MustNew is New for package-level wiring and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Document checks a raw JSON body against the named schema. Problems are
// returned as a *types.ValidationError, sorted for stable output.
func (v *Validator) Document(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return types.NewValidationError(fmt.Sprintf("malformed JSON body: %v", err))
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(problems)

	return types.NewValidationError(problems...)
}

func NewCase(nc types.NewCase) error {
	var problems []string

	if strings.TrimSpace(nc.BuyerDetails.CompanyName) == "" {
		problems = append(problems, "buyerDetails.companyName: is required")
	}
	if strings.TrimSpace(nc.InvoiceDetails.InvoiceNumber) == "" {
		problems = append(problems, "invoiceDetails.invoiceNumber: is required")
	}
	if !nc.InvoiceDetails.InvoiceAmount.IsPositive() {
		problems = append(problems, "invoiceDetails.invoiceAmount: must be greater than zero")
	}
	if nc.InvoiceDetails.InvoiceDate != nil && nc.InvoiceDetails.DueDate != nil &&
		nc.InvoiceDetails.DueDate.Before(*nc.InvoiceDetails.InvoiceDate) {
		problems = append(problems, "invoiceDetails.dueDate: must not be before invoiceDate")
	}

	if !nc.CWCRequest.RequestedAmount.IsPositive() {
		problems = append(problems, "cwcRequest.requestedAmount: must be greater than zero")
	}
	if nc.CWCRequest.RequestedTenure <= 0 {
		problems = append(problems, "cwcRequest.requestedTenure: must be greater than zero")
	}

	problems = append(problems, interestPreference(nc.InterestPreference)...)

	if len(problems) > 0 {
		return types.NewValidationError(problems...)
	}
	return nil
}

func interestPreference(p types.InterestPreference) []string {
	var problems []string

	switch p.PreferenceType {
	case types.InterestPreferenceFixed:
		if !rateInRange(p.MinRate) {
			problems = append(problems, "interestPreference.minRate: must be between 0 and 100")
		}
	case types.InterestPreferenceRange:
		if !rateInRange(p.MinRate) {
			problems = append(problems, "interestPreference.minRate: must be between 0 and 100")
		}
		if !rateInRange(p.MaxRate) {
			problems = append(problems, "interestPreference.maxRate: must be between 0 and 100")
		}
		if p.MaxRate.LessThan(p.MinRate) {
			problems = append(problems, "interestPreference.maxRate: must not be below minRate")
		}
	default:
		problems = append(problems, "interestPreference.preferenceType: must be one of fixed, range")
	}

	return problems
}

func rateInRange(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(maxInterestRate)
}

func QuotationTerms(t types.QuotationTerms) error {
	var problems []string

	if !t.OfferedAmount.IsPositive() {
		problems = append(problems, "offeredAmount: must be greater than zero")
	}
	if !t.InterestRate.IsPositive() || t.InterestRate.GreaterThan(maxInterestRate) {
		problems = append(problems, "interestRate: must be greater than 0 and at most 100")
	}
	if t.Tenure <= 0 {
		problems = append(problems, "tenure: must be greater than zero")
	}
	if t.ProcessingFee.IsNegative() {
		problems = append(problems, "processingFee: must not be negative")
	}

	if len(problems) > 0 {
		return types.NewValidationError(problems...)
	}
	return nil
}

func CareerApplication(app *types.CareerApplication) error {
	var problems []string

	if strings.TrimSpace(app.FullName) == "" {
		problems = append(problems, "fullName: is required")
	}
	if _, err := mail.ParseAddress(app.Email); err != nil || strings.TrimSpace(app.Email) == "" {
		problems = append(problems, "email: must be a valid email address")
	}
	if strings.TrimSpace(app.Position) == "" {
		problems = append(problems, "position: is required")
	}
	if app.ExperienceYears != nil && (*app.ExperienceYears < 0 || *app.ExperienceYears > 60) {
		problems = append(problems, "experienceYears: must be between 0 and 60")
	}

	if len(problems) > 0 {
		return types.NewValidationError(problems...)
	}
	return nil
}

func ApplicationReview(review types.ApplicationReview) error {
	if !review.Status.Valid() {
		return types.NewValidationError(fmt.Sprintf("status: %q is not a valid application status", review.Status))
	}
	return nil
}
