package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"gryork/internal/metrics"
	"gryork/internal/utils"
	"gryork/pkg/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sebdah/goldie/v2"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries []*types.AuditLogEntry
	err     error
	panics  bool
	filter  types.AuditLogFilter
}

func (s *fakeStore) InsertAuditLog(_ context.Context, entry *types.AuditLogEntry) error {
	if s.panics {
		panic("connection pool closed")
	}
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) AuditLogs(_ context.Context, filter types.AuditLogFilter) (*types.AuditLogPage, error) {
	s.filter = filter
	return &types.AuditLogPage{Entries: s.entries, Total: int64(len(s.entries))}, nil
}

func (s *fakeStore) CategoryCounts(context.Context, time.Time, time.Time) ([]*types.AuditCategoryCount, error) {
	return []*types.AuditCategoryCount{{Category: types.AuditCategoryCase, Count: int64(len(s.entries))}}, nil
}

var opsActor = types.Actor{ID: "u-ops-1", Name: "Priya Sharma", Role: types.RoleOps, IPAddress: "10.0.0.7"}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	store := &fakeStore{}
	logger, _ := logtest.NewNullLogger()
	w := NewWriter(store, logger)
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	res := w.Record(context.Background(), Entry(opsActor, types.AuditActionCaseStatusChanged, types.AuditCategoryCase, "case", "c-1", "moved"))

	require.True(t, res.OK())
	assert.Len(t, res.ID, utils.NanoidSize)
	require.Len(t, store.entries, 1)
	assert.Equal(t, res.ID, store.entries[0].ID)
	assert.Equal(t, fixed, store.entries[0].CreatedAt)
	assert.Equal(t, "Priya Sharma", utils.PtrString(store.entries[0].UserName))
	assert.Equal(t, "10.0.0.7", utils.PtrString(store.entries[0].IPAddress))
	assert.Nil(t, store.entries[0].UserAgent)
	assert.True(t, store.entries[0].Success)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("relation audit_logs does not exist")}
	logger, hook := logtest.NewNullLogger()
	w := NewWriter(store, logger)

	before := testutil.ToFloat64(metrics.AuditWriteFailures)
	res := w.Record(context.Background(), Entry(opsActor, types.AuditActionCaseCreated, types.AuditCategoryCase, "case", "c-1", "created"))

	assert.False(t, res.OK())
	assert.Empty(t, res.ID)
	assert.EqualError(t, res.Err, "relation audit_logs does not exist")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuditWriteFailures))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "c-1", hook.LastEntry().Data["entity_id"])
}

func TestRecordRecoversFromPanickingStore(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	w := NewWriter(&fakeStore{panics: true}, logger)

	var res Result
	assert.NotPanics(t, func() {
		res = w.Record(context.Background(), Entry(opsActor, types.AuditActionCaseCreated, types.AuditCategoryCase, "case", "c-1", "created"))
	})
	assert.ErrorContains(t, res.Err, "connection pool closed")
}

func TestWithChange(t *testing.T) {
	entry := WithChange(&types.AuditLogEntry{},
		map[string]string{"status": "SUBMITTED"},
		map[string]string{"status": "BUYER_PENDING"})

	assert.JSONEq(t, `{"status":"SUBMITTED"}`, string(entry.PreviousValue))
	assert.JSONEq(t, `{"status":"BUYER_PENDING"}`, string(entry.NewValue))

	entry = WithChange(&types.AuditLogEntry{}, nil, func() {})
	assert.Nil(t, entry.PreviousValue)
	assert.Nil(t, entry.NewValue)
}

func TestQueryRejectsInvertedRange(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	store := &fakeStore{}
	w := NewWriter(store, logger)

	from := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, err := w.Query(context.Background(), types.AuditLogFilter{From: &from, To: &to})
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = w.Stats(context.Background(), from, from)
	assert.ErrorAs(t, err, &verr)

	page, err := w.Query(context.Background(), types.AuditLogFilter{Category: types.AuditCategoryBid})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, types.AuditCategoryBid, store.filter.Category)
}

func exportFixture() []*types.AuditLogEntry {
	ist := time.FixedZone("IST", 5*3600+1800)

	return []*types.AuditLogEntry{
		{
			ID:          "a1",
			UserID:      "u-ops-1",
			UserName:    utils.StringPtr("Priya Sharma"),
			UserRole:    types.RoleOps,
			Action:      types.AuditActionCaseStatusChanged,
			Category:    types.AuditCategoryCase,
			EntityType:  "case",
			EntityID:    "c-1",
			EntityRef:   utils.StringPtr("CWCRF-2026-000042"),
			Description: `Moved case to "BUYER_APPROVED"`,
			Success:     true,
			CreatedAt:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "a2",
			UserID:      "u-nbfc-7",
			UserRole:    types.RoleNBFC,
			Action:      types.AuditActionQuotationSubmitted,
			Category:    types.AuditCategoryBid,
			EntityType:  "case",
			EntityID:    "c-1",
			Description: "Quoted 13.25%, 90 days",
			Success:     false,
			CreatedAt:   time.Date(2026, 5, 4, 10, 5, 30, 0, time.UTC),
		},
		{
			ID:          "a3",
			UserName:    utils.StringPtr(`Asha "AR" Rao`),
			Action:      types.AuditActionApplicationSubmitted,
			Category:    types.AuditCategoryCareer,
			EntityType:  "career_application",
			EntityID:    "app-9",
			Description: "Application for Backend Engineer\nvia careers page",
			Success:     true,
			CreatedAt:   time.Date(2026, 5, 4, 16, 0, 0, 0, ist),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportFixture()))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "export_csv", buf.Bytes())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Timestamp,User,Role,Action,Category,Description,Entity,Success\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatJSON, exportFixture()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "a1", decoded[0]["id"])
	assert.Equal(t, "CWCRF-2026-000042", decoded[0]["entityRef"])
	assert.Equal(t, false, decoded[1]["success"])
	assert.NotContains(t, decoded[1], "userName")

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "application/json", f.ContentType())
	assert.Equal(t, "audit-logs-20260504-100000.json", f.Filename(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)))

	_, err = ParseFormat("xml")
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

type pagingStore struct {
	fakeStore
	total int
}

func (s *pagingStore) AuditLogs(_ context.Context, filter types.AuditLogFilter) (*types.AuditLogPage, error) {
	page := &types.AuditLogPage{Page: filter.Page, Limit: filter.Limit, Total: int64(s.total)}
	start := int((filter.Page - 1) * filter.Limit)
	for i := start; i < s.total && i < start+int(filter.Limit); i++ {
		page.Entries = append(page.Entries, &types.AuditLogEntry{ID: fmt.Sprintf("e%d", i)})
	}
	return page, nil
}

func TestCollect(t *testing.T) {
	logger, _ := logtest.NewNullLogger()

	tests := []struct {
		total, max, want int
	}{
		{0, 1000, 0},
		{150, 1000, 150},
		{450, 1000, 450},
		{450, 300, 300},
	}

	for _, tt := range tests {
		w := NewWriter(&pagingStore{total: tt.total}, logger)
		entries, err := w.Collect(context.Background(), types.AuditLogFilter{Page: 9, Limit: 1}, tt.max)
		require.NoError(t, err)
		assert.Len(t, entries, tt.want)
		if tt.want > 0 {
			assert.Equal(t, "e0", entries[0].ID)
		}
	}
}
