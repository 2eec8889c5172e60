// Package cases runs the CWCRF case workflow: submission, manual status
// changes, NBFC quotations and the exactly-once quotation selection. Every
// committed change appends to the case timeline, is audited and is published
// as a case event.
package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gryork/internal/audit"
	"gryork/internal/events"
	"gryork/internal/lifecycle"
	"gryork/internal/metrics"
	"gryork/internal/sequence"
	"gryork/internal/sla"
	"gryork/internal/utils"
	"gryork/internal/validation"
	"gryork/pkg/types"

	"github.com/sirupsen/logrus"
)

// Store persists cases. Status-changing methods are conditional on the
// expected current status and return types.ErrStatusConflict when it no
// longer holds.
type Store interface {
	CreateCase(ctx context.Context, c *types.Case, first *types.TimelineEntry) error
	Case(ctx context.Context, caseID string) (*types.Case, error)
	CasesBySubcontractor(ctx context.Context, subcontractorID string) ([]*types.Case, error)
	Cases(ctx context.Context, filter types.CaseFilter) ([]*types.Case, error)
	AdvanceStatus(ctx context.Context, caseID string, expected types.CaseStatus, entry *types.TimelineEntry) error
	AddQuotation(ctx context.Context, q *types.Quotation, expected types.CaseStatus, entry *types.TimelineEntry) error
	SelectQuotation(ctx context.Context, q *types.Quotation, entry *types.TimelineEntry) error
	Quotations(ctx context.Context, caseID string) ([]*types.Quotation, error)
}

type Directory interface {
	NBFC(ctx context.Context, id string) (*types.NBFC, error)
}

type Deps struct {
	Store   Store
	NBFCs   Directory
	Numbers sequence.Allocator
	Audit   *audit.Writer
	Events  events.Publisher
	Tracker *sla.Tracker
	Logger  *logrus.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store   Store
	nbfcs   Directory
	numbers sequence.Allocator
	audit   *audit.Writer
	events  events.Publisher
	tracker *sla.Tracker
	logger  *logrus.Logger
	now     func() time.Time
}

// quoteAttempts bounds how often a quotation is re-evaluated after losing a
// race with another quotation on the same case.
const quoteAttempts = 3

func New(deps Deps) *Service {
	s := &Service{
		store:   deps.Store,
		nbfcs:   deps.NBFCs,
		numbers: deps.Numbers,
		audit:   deps.Audit,
		events:  deps.Events,
		tracker: deps.Tracker,
		logger:  deps.Logger,
		now:     deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) CreateCase(ctx context.Context, actor types.Actor, nc types.NewCase) (*types.Case, error) {
	if err := validation.NewCase(nc); err != nil {
		return nil, err
	}

	now := s.clock()
	caseNumber, err := sequence.NextCaseNumber(ctx, s.numbers, now)
	if err != nil {
		return nil, err
	}

	c := &types.Case{
		ID:                 utils.NanoID(),
		CaseNumber:         caseNumber,
		SubcontractorID:    actor.ID,
		Status:             types.CaseStatusSubmitted,
		BuyerDetails:       nc.BuyerDetails,
		InvoiceDetails:     nc.InvoiceDetails,
		CWCRequest:         nc.CWCRequest,
		InterestPreference: nc.InterestPreference,
		CreatedAt:          now,
		UpdatedAt:          now,
		Quotations:         make([]*types.Quotation, 0),
	}

	first := s.timelineEntry(c, types.CaseStatusSubmitted, actor, "Case submitted", now)
	if err := s.store.CreateCase(ctx, c, first); err != nil {
		return nil, err
	}
	c.Timeline = []*types.TimelineEntry{first}

	metrics.CasesCreated.Inc()

	entry := audit.Entry(actor, types.AuditActionCaseCreated, types.AuditCategoryCase, "case", c.ID,
		fmt.Sprintf("Submitted CWCRF %s for %s", c.CaseNumber, c.BuyerDetails.CompanyName))
	entry.EntityRef = &c.CaseNumber
	s.audit.Record(ctx, audit.WithChange(entry, nil, map[string]any{
		"status":          c.Status,
		"requestedAmount": c.CWCRequest.RequestedAmount,
	}))

	s.publish(ctx, types.CaseEventCreated, c, actor, now)

	return c, nil
}

// Transition applies a manual status change. Stages entered by the quotation
// operations cannot be set here, and an unknown target is an invalid transition.
func (s *Service) Transition(ctx context.Context, actor types.Actor, caseID string, to types.CaseStatus, notes string) (*types.Case, error) {
	c, err := s.store.Case(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(actor, c, to); err != nil {
		return nil, err
	}

	from := c.Status
	if err := lifecycle.CheckManual(from, to); err != nil {
		s.refused(ctx, actor, c, types.AuditActionCaseStatusChanged, types.AuditCategoryCase, metrics.ReasonInvalidTransition, err)
		return nil, err
	}

	now := s.clock()
	entry := s.timelineEntry(c, to, actor, notes, now)

	err = s.store.AdvanceStatus(ctx, c.ID, from, entry)
	if errors.Is(err, types.ErrStatusConflict) {
		err = s.transitionConflict(ctx, caseID, to)
		s.refused(ctx, actor, c, types.AuditActionCaseStatusChanged, types.AuditCategoryCase, metrics.ReasonConflict, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	c.Status = to
	c.UpdatedAt = now
	c.Timeline = append(c.Timeline, entry)

	metrics.CaseTransitions.WithLabelValues(string(from), string(to)).Inc()

	record := audit.Entry(actor, types.AuditActionCaseStatusChanged, types.AuditCategoryCase, "case", c.ID,
		fmt.Sprintf("Moved %s from %s to %s", c.CaseNumber, from, to))
	record.EntityRef = &c.CaseNumber
	s.audit.Record(ctx, audit.WithChange(record, map[string]any{"status": from}, map[string]any{"status": to, "notes": entry.Notes}))

	s.publish(ctx, types.CaseEventTransitioned, c, actor, now)

	return c, nil
}

// transitionConflict explains a lost race: if the winner moved the case
// somewhere the requested change is no longer valid from, that is reported;
// otherwise the caller is told to reload.
func (s *Service) transitionConflict(ctx context.Context, caseID string, to types.CaseStatus) error {
	current, err := s.store.Case(ctx, caseID)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckManual(current.Status, to); err != nil {
		return err
	}
	return types.ErrStatusConflict
}

func (s *Service) GetCase(ctx context.Context, actor types.Actor, caseID string) (*types.Case, error) {
	c, err := s.store.Case(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, c); err != nil {
		return nil, err
	}
	return redact(actor, c), nil
}

// ListCasesForSubcontractor returns every case owned by subcontractorID, newest first.
func (s *Service) ListCasesForSubcontractor(ctx context.Context, subcontractorID string) ([]*types.Case, error) {
	return s.store.CasesBySubcontractor(ctx, subcontractorID)
}

// ListCases scopes filter to what actor may see: sub-contractors get their
// own cases and NBFCs only cases that have been shared with lenders.
func (s *Service) ListCases(ctx context.Context, actor types.Actor, filter types.CaseFilter) ([]*types.Case, error) {
	if filter.Status != "" && !lifecycle.Valid(filter.Status) {
		return nil, types.NewValidationError(fmt.Sprintf("status: %q is not a known case status", filter.Status))
	}

	switch actor.Role {
	case types.RoleSubcontractor:
		filter.SubcontractorID = actor.ID
	case types.RoleNBFC:
		if filter.Status == "" {
			filter.Status = types.CaseStatusSharedWithNBFC
		}
		if !visibleToLenders(filter.Status) {
			return nil, types.ErrForbidden
		}
	}

	cases, err := s.store.Cases(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, c := range cases {
		cases[i] = redact(actor, c)
	}
	return cases, nil
}

// SLA evaluates the case's milestones as of now.
func (s *Service) SLA(ctx context.Context, actor types.Actor, caseID string) (*sla.Report, error) {
	c, err := s.store.Case(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, c); err != nil {
		return nil, err
	}
	return s.tracker.Evaluate(c, s.clock()), nil
}

func (s *Service) timelineEntry(c *types.Case, status types.CaseStatus, actor types.Actor, notes string, at time.Time) *types.TimelineEntry {
	return &types.TimelineEntry{
		ID:        utils.NanoID(),
		CaseID:    c.ID,
		Sequence:  len(c.Timeline) + 1,
		Status:    status,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Notes:     utils.NilIfBlank(notes),
		CreatedAt: at,
	}
}

// refused audits an operation turned away by the workflow rules.
func (s *Service) refused(ctx context.Context, actor types.Actor, c *types.Case, action types.AuditAction, category types.AuditCategory, reason string, cause error) {
	metrics.CaseTransitionsRejected.WithLabelValues(reason).Inc()

	entry := audit.Entry(actor, action, category, "case", c.ID, fmt.Sprintf("Refused change to %s", c.CaseNumber))
	entry.EntityRef = &c.CaseNumber
	entry.Success = false
	entry.ErrorMessage = utils.StringPtr(cause.Error())
	s.audit.Record(ctx, entry)
}

func (s *Service) publish(ctx context.Context, eventType string, c *types.Case, actor types.Actor, at time.Time) {
	err := s.events.Publish(ctx, types.CaseEvent{
		Type:       eventType,
		CaseID:     c.ID,
		CaseNumber: c.CaseNumber,
		Status:     c.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: at,
	})
	if err != nil {
		metrics.EventPublishFailures.Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"case_id": c.ID,
			"event":   eventType,
		}).Error("failed to publish case event")
	}
}
