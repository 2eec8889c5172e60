package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quotation is an NBFC offer against a case. It is written once and never updated.
type Quotation struct {
	ID            string          `db:"id" json:"id"`
	CaseID        string          `db:"case_id" json:"caseId"`
	NBFCID        string          `db:"nbfc_id" json:"nbfc"`
	OfferedAmount decimal.Decimal `db:"offered_amount" json:"offeredAmount"`
	InterestRate  decimal.Decimal `db:"interest_rate" json:"interestRate"`
	// Tenure is in days.
	Tenure        int             `db:"tenure_days" json:"tenure"`
	ProcessingFee decimal.Decimal `db:"processing_fee" json:"processingFee"`
	Remarks       *string         `db:"remarks" json:"remarks,omitempty"`
	QuotedAt      time.Time       `db:"quoted_at" json:"quotedAt"`
}

// QuotationTerms are the NBFC-supplied parts of a quotation.
type QuotationTerms struct {
	OfferedAmount decimal.Decimal `json:"offeredAmount"`
	InterestRate  decimal.Decimal `json:"interestRate"`
	Tenure        int             `json:"tenure"`
	ProcessingFee decimal.Decimal `json:"processingFee"`
	Remarks       string          `json:"remarks,omitempty"`
}
