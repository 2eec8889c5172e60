// Package memory is an in-process implementation of the repositories. It
// keeps the same conditional-update contract as the Postgres store and backs
// `serve --memory` and the service tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gryork/internal/store"
	"gryork/internal/utils"
	"gryork/pkg/types"
)

var errDuplicateKey = errors.New("duplicate key")

type Store struct {
	mu sync.Mutex

	cases        map[string]*types.Case
	nbfcs        map[string]*types.NBFC
	audit        []*types.AuditLogEntry
	applications map[string]*types.CareerApplication
	sequences    map[int]int64

	// FailAudit makes every audit insert fail with this error.
	FailAudit error
}

func New() *Store {
	return &Store{
		cases:        make(map[string]*types.Case),
		nbfcs:        make(map[string]*types.NBFC),
		applications: make(map[string]*types.CareerApplication),
		sequences:    make(map[int]int64),
	}
}

// Next implements sequence.Allocator with a per-year counter.
func (s *Store) Next(_ context.Context, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[year]++
	return s.sequences[year], nil
}

func (s *Store) CreateCase(_ context.Context, c *types.Case, first *types.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[c.ID]; ok {
		return types.NewStorageError("create case", errDuplicateKey)
	}
	for _, existing := range s.cases {
		if existing.CaseNumber == c.CaseNumber {
			return types.NewStorageError("create case", errDuplicateKey)
		}
	}

	stored := copyCase(c)
	stored.Quotations = make([]*types.Quotation, 0)
	entry := *first
	stored.Timeline = []*types.TimelineEntry{&entry}
	s.cases[c.ID] = stored

	return nil
}

func (s *Store) Case(_ context.Context, caseID string) (*types.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return nil, &types.NotFoundError{Entity: "case", ID: caseID}
	}
	return copyCase(c), nil
}

// CasesBySubcontractor returns every case owned by subcontractorID, newest first.
func (s *Store) CasesBySubcontractor(_ context.Context, subcontractorID string) ([]*types.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyCases(s.matchCases(types.CaseFilter{SubcontractorID: subcontractorID})), nil
}

func (s *Store) Cases(_ context.Context, filter types.CaseFilter) ([]*types.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyCases(page(s.matchCases(filter), filter.Page, filter.Limit)), nil
}

// matchCases filters and orders cases newest first. Callers hold s.mu.
func (s *Store) matchCases(filter types.CaseFilter) []*types.Case {
	matched := make([]*types.Case, 0)
	for _, c := range s.cases {
		if filter.SubcontractorID != "" && c.SubcontractorID != filter.SubcontractorID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		matched = append(matched, c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func copyCases(cases []*types.Case) []*types.Case {
	out := make([]*types.Case, 0, len(cases))
	for _, c := range cases {
		out = append(out, copyCase(c))
	}
	return out
}

func (s *Store) AdvanceStatus(_ context.Context, caseID string, expected types.CaseStatus, entry *types.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok || c.Status != expected {
		return types.ErrStatusConflict
	}
	if err := appendTimeline(c, entry); err != nil {
		return err
	}

	c.Status = entry.Status
	c.UpdatedAt = entry.CreatedAt
	return nil
}

func (s *Store) AddQuotation(_ context.Context, q *types.Quotation, expected types.CaseStatus, entry *types.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[q.CaseID]
	if !ok || c.Status != expected || c.SelectedQuotationID != nil {
		return types.ErrStatusConflict
	}
	if c.QuotationFrom(q.NBFCID) != nil {
		return types.ErrDuplicateQuote
	}
	if entry != nil {
		if err := appendTimeline(c, entry); err != nil {
			return err
		}
		c.Status = entry.Status
	}

	stored := *q
	c.Quotations = append(c.Quotations, &stored)
	c.UpdatedAt = q.QuotedAt
	return nil
}

func (s *Store) SelectQuotation(_ context.Context, q *types.Quotation, entry *types.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[q.CaseID]
	if !ok || c.Status != types.CaseStatusQuotationsReceived || c.SelectedQuotationID != nil {
		return types.ErrStatusConflict
	}
	if err := appendTimeline(c, entry); err != nil {
		return err
	}

	quotationID, nbfcID := q.ID, q.NBFCID
	c.SelectedQuotationID = &quotationID
	c.SelectedNBFCID = &nbfcID
	c.Status = entry.Status
	c.UpdatedAt = entry.CreatedAt
	return nil
}

func (s *Store) Quotations(_ context.Context, caseID string) ([]*types.Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Quotation, 0)
	if c, ok := s.cases[caseID]; ok {
		for _, q := range c.Quotations {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func appendTimeline(c *types.Case, entry *types.TimelineEntry) error {
	if entry.Sequence != len(c.Timeline)+1 {
		return types.ErrStatusConflict
	}
	cp := *entry
	c.Timeline = append(c.Timeline, &cp)
	return nil
}

func (s *Store) UpsertNBFC(_ context.Context, nbfc *types.NBFC) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nbfc.CreatedAt.IsZero() {
		nbfc.CreatedAt = time.Now()
	}
	cp := *nbfc
	s.nbfcs[nbfc.ID] = &cp
	return nil
}

func (s *Store) NBFC(_ context.Context, id string) (*types.NBFC, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nbfc, ok := s.nbfcs[id]
	if !ok {
		return nil, &types.NotFoundError{Entity: "nbfc", ID: id}
	}
	cp := *nbfc
	return &cp, nil
}

func (s *Store) ActiveNBFCs(_ context.Context) ([]*types.NBFC, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.NBFC, 0)
	for _, nbfc := range s.nbfcs {
		if nbfc.IsActive {
			cp := *nbfc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) AllNBFCs(_ context.Context) ([]*types.NBFC, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.NBFC, 0, len(s.nbfcs))
	for _, nbfc := range s.nbfcs {
		cp := *nbfc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeactivateNBFC(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nbfc, ok := s.nbfcs[id]; ok {
		nbfc.IsActive = false
	}
	return nil
}

func (s *Store) InsertAuditLog(_ context.Context, entry *types.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAudit != nil {
		return types.NewStorageError("insert audit log", s.FailAudit)
	}
	cp := *entry
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *Store) AuditLogs(_ context.Context, filter types.AuditLogFilter) (*types.AuditLogPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*types.AuditLogEntry, 0)
	for i := len(s.audit) - 1; i >= 0; i-- {
		if auditMatches(s.audit[i], filter) {
			matched = append(matched, s.audit[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit, offset := store.PageBounds(filter.Page, filter.Limit)
	result := &types.AuditLogPage{
		Entries: make([]*types.AuditLogEntry, 0),
		Total:   int64(len(matched)),
		Page:    offset/limit + 1,
		Limit:   limit,
	}
	for _, entry := range page(matched, filter.Page, filter.Limit) {
		cp := *entry
		result.Entries = append(result.Entries, &cp)
	}
	return result, nil
}

func auditMatches(entry *types.AuditLogEntry, filter types.AuditLogFilter) bool {
	switch {
	case filter.UserID != "" && entry.UserID != filter.UserID,
		filter.Action != "" && entry.Action != filter.Action,
		filter.Category != "" && entry.Category != filter.Category,
		filter.EntityType != "" && entry.EntityType != filter.EntityType,
		filter.EntityID != "" && entry.EntityID != filter.EntityID,
		filter.From != nil && entry.CreatedAt.Before(*filter.From),
		filter.To != nil && !entry.CreatedAt.Before(*filter.To):
		return false
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return true
	}
	for _, field := range []string{entry.Description, utils.PtrString(entry.UserName), utils.PtrString(entry.EntityRef)} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func (s *Store) CategoryCounts(_ context.Context, from, to time.Time) ([]*types.AuditCategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[types.AuditCategory]int64)
	for _, entry := range s.audit {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		counts[entry.Category]++
	}

	out := make([]*types.AuditCategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, &types.AuditCategoryCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) CreateApplication(_ context.Context, app *types.CareerApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	app.ID = utils.NanoID()
	app.Status = types.ApplicationStatusNew
	app.CreatedAt = now
	app.UpdatedAt = now

	cp := *app
	s.applications[app.ID] = &cp
	return nil
}

func (s *Store) Application(_ context.Context, id string) (*types.CareerApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, &types.NotFoundError{Entity: "career application", ID: id}
	}
	cp := *app
	return &cp, nil
}

func (s *Store) Applications(_ context.Context, filter types.ApplicationFilter) ([]*types.CareerApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*types.CareerApplication, 0)
	for _, app := range s.applications {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.Position != "" && app.Position != filter.Position {
			continue
		}
		matched = append(matched, app)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	out := make([]*types.CareerApplication, 0)
	for _, app := range page(matched, filter.Page, filter.Limit) {
		cp := *app
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateApplication(_ context.Context, app *types.CareerApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.applications[app.ID]
	if !ok {
		return &types.NotFoundError{Entity: "career application", ID: app.ID}
	}

	app.UpdatedAt = time.Now()
	stored.Status = app.Status
	stored.AdminNotes = app.AdminNotes
	stored.ReviewedBy = app.ReviewedBy
	stored.ReviewedAt = app.ReviewedAt
	stored.UpdatedAt = app.UpdatedAt
	return nil
}

func page[T any](items []T, pageNum, limit uint64) []T {
	limit, offset := store.PageBounds(pageNum, limit)
	if offset >= uint64(len(items)) {
		return nil
	}
	end := offset + limit
	if end > uint64(len(items)) {
		end = uint64(len(items))
	}
	return items[offset:end]
}

func copyCase(c *types.Case) *types.Case {
	cp := *c
	cp.Timeline = make([]*types.TimelineEntry, len(c.Timeline))
	for i, e := range c.Timeline {
		entry := *e
		cp.Timeline[i] = &entry
	}
	cp.Quotations = make([]*types.Quotation, len(c.Quotations))
	for i, q := range c.Quotations {
		quotation := *q
		cp.Quotations[i] = &quotation
	}
	if c.SelectedQuotationID != nil {
		id := *c.SelectedQuotationID
		cp.SelectedQuotationID = &id
	}
	if c.SelectedNBFCID != nil {
		id := *c.SelectedNBFCID
		cp.SelectedNBFCID = &id
	}
	return &cp
}
