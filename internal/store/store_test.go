package store

import (
	"testing"
	"time"

	"gryork/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, limit         uint64
		wantLimit, wantSkip uint64
	}{
		{0, 0, DefaultPageSize, 0},
		{1, 10, 10, 0},
		{3, 10, 10, 20},
		{2, 1000, MaxPageSize, MaxPageSize},
	}

	for _, tt := range tests {
		limit, offset := PageBounds(tt.page, tt.limit)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantSkip, offset)
	}
}

func TestCasesQuery(t *testing.T) {
	query, args, err := casesQuery(types.CaseFilter{
		SubcontractorID: "sub-1",
		Status:          types.CaseStatusBuyerPending,
		Page:            2,
		Limit:           20,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM gryork.cases WHERE status = $1 AND subcontractor_id = $2")
	assert.Contains(t, query, "ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 20")
	assert.Equal(t, []any{types.CaseStatusBuyerPending, "sub-1"}, args)
}

func TestCasesSelectIsNotPaged(t *testing.T) {
	query, args, err := casesSelect(types.CaseFilter{SubcontractorID: "sub-1"}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM gryork.cases WHERE subcontractor_id = $1 ORDER BY created_at DESC, id DESC")
	assert.NotContains(t, query, "LIMIT")
	assert.NotContains(t, query, "OFFSET")
	assert.Equal(t, []any{"sub-1"}, args)
}

func TestAuditLogWhere(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sql, args, err := auditLogWhere(types.AuditLogFilter{
		UserID:   "u1",
		Category: types.AuditCategoryCase,
		From:     &from,
		To:       &to,
		Search:   "50%_off",
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"(category = ? AND user_id = ? AND created_at >= ? AND created_at < ? AND (description ILIKE ? OR user_name ILIKE ? OR entity_ref ILIKE ?))",
		sql)
	assert.Equal(t, []any{
		types.AuditCategoryCase, "u1", from, to,
		`%50\%\_off%`, `%50\%\_off%`, `%50\%\_off%`,
	}, args)
}

func TestAuditLogWhereIgnoresBlankSearch(t *testing.T) {
	sql, args, err := auditLogWhere(types.AuditLogFilter{Search: "   ", EntityType: "case", EntityID: "c1"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(entity_id = ? AND entity_type = ?)", sql)
	assert.Equal(t, []any{"c1", "case"}, args)
}
