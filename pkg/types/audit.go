package types

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionCaseCreated          AuditAction = "CASE_CREATED"
	AuditActionCaseStatusChanged    AuditAction = "CASE_STATUS_CHANGED"
	AuditActionQuotationSubmitted   AuditAction = "QUOTATION_SUBMITTED"
	AuditActionQuotationSelected    AuditAction = "QUOTATION_SELECTED"
	AuditActionApplicationSubmitted AuditAction = "APPLICATION_SUBMITTED"
	AuditActionApplicationReviewed  AuditAction = "APPLICATION_REVIEWED"
	AuditActionAuditLogExported     AuditAction = "AUDIT_LOG_EXPORTED"
	AuditActionNBFCSeeded           AuditAction = "NBFC_SEEDED"
)

type AuditCategory string

const (
	AuditCategoryCase   AuditCategory = "CASE"
	AuditCategoryBid    AuditCategory = "BID"
	AuditCategoryCareer AuditCategory = "CAREER"
	AuditCategoryAdmin  AuditCategory = "ADMIN"
	AuditCategorySystem AuditCategory = "SYSTEM"
)

type AuditLogEntry struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	UserName      *string         `db:"user_name" json:"userName,omitempty"`
	UserRole      Role            `db:"user_role" json:"userRole"`
	Action        AuditAction     `db:"action" json:"action"`
	Category      AuditCategory   `db:"category" json:"category"`
	EntityType    string          `db:"entity_type" json:"entityType"`
	EntityID      string          `db:"entity_id" json:"entityId"`
	EntityRef     *string         `db:"entity_ref" json:"entityRef,omitempty"`
	Description   string          `db:"description" json:"description"`
	PreviousValue json.RawMessage `db:"previous_value" json:"previousValue,omitempty"`
	NewValue      json.RawMessage `db:"new_value" json:"newValue,omitempty"`
	Success       bool            `db:"success" json:"success"`
	ErrorMessage  *string         `db:"error_message" json:"errorMessage,omitempty"`
	IPAddress     *string         `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent     *string         `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

type AuditLogFilter struct {
	UserID     string        `form:"userId"`
	Action     AuditAction   `form:"action"`
	Category   AuditCategory `form:"category"`
	EntityType string        `form:"entityType"`
	EntityID   string        `form:"entityId"`
	From       *time.Time    `form:"from"`
	To         *time.Time    `form:"to"`
	Search     string        `form:"search"`
	Page       uint64        `form:"page"`
	Limit      uint64        `form:"limit"`
}

type AuditLogPage struct {
	Entries []*AuditLogEntry `json:"entries"`
	Total   int64            `json:"total"`
	Page    uint64           `json:"page"`
	Limit   uint64           `json:"limit"`
}

type AuditCategoryCount struct {
	Category AuditCategory `db:"category" json:"category"`
	Count    int64         `db:"count" json:"count"`
}
