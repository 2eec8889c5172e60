package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type CaseStatus string

const (
	CaseStatusSubmitted            CaseStatus = "SUBMITTED"
	CaseStatusBuyerPending         CaseStatus = "BUYER_PENDING"
	CaseStatusBuyerApproved        CaseStatus = "BUYER_APPROVED"
	CaseStatusUnderRiskReview      CaseStatus = "UNDER_RISK_REVIEW"
	CaseStatusCWCAFReady           CaseStatus = "CWCAF_READY"
	CaseStatusSharedWithNBFC       CaseStatus = "SHARED_WITH_NBFC"
	CaseStatusQuotationsReceived   CaseStatus = "QUOTATIONS_RECEIVED"
	CaseStatusNBFCSelected         CaseStatus = "NBFC_SELECTED"
	CaseStatusDocumentationPending CaseStatus = "DOCUMENTATION_PENDING"
	CaseStatusDisbursed            CaseStatus = "DISBURSED"

	CaseStatusBuyerRejected CaseStatus = "BUYER_REJECTED"
	CaseStatusRejected      CaseStatus = "REJECTED"
	CaseStatusCancelled     CaseStatus = "CANCELLED"
)

// Case is a CWCRF submission and everything attached to it. Quotations and
// Timeline live in their own tables and are populated by the repository.
type Case struct {
	ID              string     `db:"id" json:"id"`
	CaseNumber      string     `db:"case_number" json:"caseNumber"`
	SubcontractorID string     `db:"subcontractor_id" json:"subcontractorId"`
	Status          CaseStatus `db:"status" json:"status"`

	BuyerDetails       BuyerDetails       `db:"buyer_details" json:"buyerDetails"`
	InvoiceDetails     InvoiceDetails     `db:"invoice_details" json:"invoiceDetails"`
	CWCRequest         CWCRequest         `db:"cwc_request" json:"cwcRequest"`
	InterestPreference InterestPreference `db:"interest_preference" json:"interestPreference"`

	SelectedQuotationID *string `db:"selected_quotation_id" json:"selectedQuotationId,omitempty"`
	SelectedNBFCID      *string `db:"selected_nbfc_id" json:"selectedNbfcId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Quotations []*Quotation     `db:"-" json:"nbfcQuotations"`
	Timeline   []*TimelineEntry `db:"-" json:"timeline"`
}

// SelectedQuotation returns the quotation the selection pointer refers to, if any.
func (c *Case) SelectedQuotation() *Quotation {
	if c.SelectedQuotationID == nil {
		return nil
	}
	for _, q := range c.Quotations {
		if q.ID == *c.SelectedQuotationID {
			return q
		}
	}
	return nil
}

// QuotationFrom returns the quotation submitted by nbfcID, if any.
func (c *Case) QuotationFrom(nbfcID string) *Quotation {
	for _, q := range c.Quotations {
		if q.NBFCID == nbfcID {
			return q
		}
	}
	return nil
}

type BuyerDetails struct {
	CompanyName  string `json:"companyName"`
	GSTIN        string `json:"gstin,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

type InvoiceDetails struct {
	InvoiceNumber   string          `json:"invoiceNumber"`
	InvoiceDate     *time.Time      `json:"invoiceDate,omitempty"`
	InvoiceAmount   decimal.Decimal `json:"invoiceAmount"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	WorkDescription string          `json:"workDescription,omitempty"`
}

type CWCRequest struct {
	RequestedAmount decimal.Decimal `json:"requestedAmount"`
	// RequestedTenure is in days.
	RequestedTenure int    `json:"requestedTenure"`
	Purpose         string `json:"purpose,omitempty"`
}

type InterestPreferenceType string

const (
	InterestPreferenceFixed InterestPreferenceType = "fixed"
	InterestPreferenceRange InterestPreferenceType = "range"
)

type InterestPreference struct {
	PreferenceType InterestPreferenceType `json:"preferenceType"`
	MinRate        decimal.Decimal        `json:"minRate"`
	MaxRate        decimal.Decimal        `json:"maxRate"`
}

// NewCase is the submission payload accepted by CreateCase.
type NewCase struct {
	BuyerDetails       BuyerDetails       `json:"buyerDetails"`
	InvoiceDetails     InvoiceDetails     `json:"invoiceDetails"`
	CWCRequest         CWCRequest         `json:"cwcRequest"`
	InterestPreference InterestPreference `json:"interestPreference"`
}

type TimelineEntry struct {
	ID        string     `db:"id" json:"id"`
	CaseID    string     `db:"case_id" json:"caseId"`
	Sequence  int        `db:"sequence" json:"sequence"`
	Status    CaseStatus `db:"status" json:"status"`
	ActorID   string     `db:"actor_id" json:"actorId"`
	ActorRole Role       `db:"actor_role" json:"actorRole"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"timestamp"`
}

type CaseFilter struct {
	Status          CaseStatus `form:"status"`
	SubcontractorID string     `form:"subcontractorId"`
	Page            uint64     `form:"page"`
	Limit           uint64     `form:"limit"`
}

// CaseEvent is published after every committed lifecycle change.
type CaseEvent struct {
	Type       string     `json:"type"`
	CaseID     string     `json:"caseId"`
	CaseNumber string     `json:"caseNumber"`
	Status     CaseStatus `json:"status"`
	ActorID    string     `json:"actorId"`
	ActorRole  Role       `json:"actorRole"`
	OccurredAt time.Time  `json:"occurredAt"`
}

const (
	CaseEventCreated            = "case.created"
	CaseEventTransitioned       = "case.transitioned"
	CaseEventQuotationSubmitted = "case.quotation_submitted"
	CaseEventQuotationSelected  = "case.quotation_selected"
)
