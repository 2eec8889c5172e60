package cases

import (
	"context"
	"errors"
	"fmt"

	"gryork/internal/audit"
	"gryork/internal/lifecycle"
	"gryork/internal/metrics"
	"gryork/internal/utils"
	"gryork/internal/validation"
	"gryork/pkg/types"
)

const (
	opSubmitQuotation = "submit quotation"
	opSelectQuotation = "select quotation"
)

// SubmitQuotation records an NBFC's offer. The first quotation on a case
// moves it to QUOTATIONS_RECEIVED. NBFC users always quote as their own
// organisation; staff may quote on behalf of nbfcID.
func (s *Service) SubmitQuotation(ctx context.Context, actor types.Actor, caseID, nbfcID string, terms types.QuotationTerms) (*types.Quotation, error) {
	if actor.Role == types.RoleNBFC {
		if nbfcID != "" && nbfcID != actor.OrgID {
			return nil, types.ErrForbidden
		}
		nbfcID = actor.OrgID
	}
	if nbfcID == "" {
		return nil, types.NewValidationError("nbfcId: is required")
	}
	if err := validation.QuotationTerms(terms); err != nil {
		return nil, err
	}

	nbfc, err := s.nbfcs.NBFC(ctx, nbfcID)
	if err != nil {
		return nil, err
	}
	if !nbfc.IsActive {
		return nil, types.NewValidationError(fmt.Sprintf("nbfcId: %s is not an active lending partner", nbfc.Name))
	}

	for attempt := 1; ; attempt++ {
		q, c, err := s.addQuotation(ctx, actor, caseID, nbfc, terms)
		if errors.Is(err, types.ErrStatusConflict) && attempt < quoteAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		metrics.QuotationsSubmitted.Inc()

		entry := audit.Entry(actor, types.AuditActionQuotationSubmitted, types.AuditCategoryBid, "case", c.ID,
			fmt.Sprintf("%s quoted %s at %s%% for %d days on %s", nbfc.Name, q.OfferedAmount, q.InterestRate, q.Tenure, c.CaseNumber))
		entry.EntityRef = &c.CaseNumber
		s.audit.Record(ctx, audit.WithChange(entry, nil, q))

		s.publish(ctx, types.CaseEventQuotationSubmitted, c, actor, q.QuotedAt)

		return q, nil
	}
}

func (s *Service) addQuotation(ctx context.Context, actor types.Actor, caseID string, nbfc *types.NBFC, terms types.QuotationTerms) (*types.Quotation, *types.Case, error) {
	c, err := s.store.Case(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}

	if c.Status != types.CaseStatusSharedWithNBFC && c.Status != types.CaseStatusQuotationsReceived {
		err := &types.InvalidStateError{Operation: opSubmitQuotation, Status: c.Status}
		s.refused(ctx, actor, c, types.AuditActionQuotationSubmitted, types.AuditCategoryBid, metrics.ReasonInvalidState, err)
		return nil, nil, err
	}
	if c.QuotationFrom(nbfc.ID) != nil {
		return nil, nil, duplicateQuote(nbfc)
	}

	now := s.clock()
	q := &types.Quotation{
		ID:            utils.NanoID(),
		CaseID:        c.ID,
		NBFCID:        nbfc.ID,
		OfferedAmount: terms.OfferedAmount,
		InterestRate:  terms.InterestRate,
		Tenure:        terms.Tenure,
		ProcessingFee: terms.ProcessingFee,
		Remarks:       utils.NilIfBlank(terms.Remarks),
		QuotedAt:      now,
	}

	var entry *types.TimelineEntry
	if c.Status == types.CaseStatusSharedWithNBFC {
		entry = s.timelineEntry(c, types.CaseStatusQuotationsReceived, actor,
			fmt.Sprintf("First quotation received from %s", nbfc.Name), now)
	}

	err = s.store.AddQuotation(ctx, q, c.Status, entry)
	if errors.Is(err, types.ErrDuplicateQuote) {
		return nil, nil, duplicateQuote(nbfc)
	}
	if err != nil {
		return nil, nil, err
	}

	c.Quotations = append(c.Quotations, q)
	c.UpdatedAt = now
	if entry != nil {
		metrics.CaseTransitions.WithLabelValues(string(c.Status), string(entry.Status)).Inc()
		c.Status = entry.Status
		c.Timeline = append(c.Timeline, entry)
	}

	return q, c, nil
}

func duplicateQuote(nbfc *types.NBFC) error {
	return types.NewValidationError(fmt.Sprintf("%s: %s", nbfc.Name, types.ErrDuplicateQuote))
}

// SelectQuotation locks the quotation from nbfcID as the case's lender.
// Selection happens at most once per case.
func (s *Service) SelectQuotation(ctx context.Context, actor types.Actor, caseID, nbfcID string) (*types.Case, error) {
	c, err := s.store.Case(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, c); err != nil {
		return nil, err
	}

	if err := selectable(c, nbfcID); err != nil {
		s.refusedSelection(ctx, actor, c, err)
		return nil, err
	}

	q := c.QuotationFrom(nbfcID)
	now := s.clock()
	entry := s.timelineEntry(c, types.CaseStatusNBFCSelected, actor,
		fmt.Sprintf("Selected quotation from %s", nbfcID), now)

	err = s.store.SelectQuotation(ctx, q, entry)
	if errors.Is(err, types.ErrStatusConflict) {
		current, readErr := s.store.Case(ctx, caseID)
		if readErr != nil {
			return nil, readErr
		}
		err = selectable(current, nbfcID)
		if err == nil {
			err = types.ErrStatusConflict
		}
		s.refusedSelection(ctx, actor, current, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	from := c.Status
	c.Status = types.CaseStatusNBFCSelected
	c.SelectedQuotationID = &q.ID
	c.SelectedNBFCID = &q.NBFCID
	c.UpdatedAt = now
	c.Timeline = append(c.Timeline, entry)

	metrics.CaseTransitions.WithLabelValues(string(from), string(c.Status)).Inc()

	record := audit.Entry(actor, types.AuditActionQuotationSelected, types.AuditCategoryBid, "case", c.ID,
		fmt.Sprintf("Selected %s's quotation on %s", nbfcID, c.CaseNumber))
	record.EntityRef = &c.CaseNumber
	s.audit.Record(ctx, audit.WithChange(record, map[string]any{"status": from}, map[string]any{
		"status":      c.Status,
		"nbfc":        q.NBFCID,
		"quotationId": q.ID,
	}))

	s.publish(ctx, types.CaseEventQuotationSelected, c, actor, now)

	return c, nil
}

// selectable checks, in order, that nothing is selected yet, that the case is
// taking selections and that nbfcID has quoted.
func selectable(c *types.Case, nbfcID string) error {
	if c.SelectedQuotationID != nil {
		return types.ErrAlreadySelected
	}
	if c.Status != types.CaseStatusQuotationsReceived {
		return &types.InvalidStateError{Operation: opSelectQuotation, Status: c.Status}
	}
	if c.QuotationFrom(nbfcID) == nil {
		return &types.NotFoundError{Entity: "quotation", ID: nbfcID}
	}
	return nil
}

func (s *Service) refusedSelection(ctx context.Context, actor types.Actor, c *types.Case, err error) {
	reason := metrics.ReasonInvalidState
	switch {
	case errors.Is(err, types.ErrAlreadySelected):
		reason = metrics.ReasonAlreadySelected
	case errors.Is(err, types.ErrNotFound):
		return
	case errors.Is(err, types.ErrStatusConflict):
		reason = metrics.ReasonConflict
	}
	s.refused(ctx, actor, c, types.AuditActionQuotationSelected, types.AuditCategoryBid, reason, err)
}

// Quotations lists a case's quotations in submission order. NBFC users only
// see their own.
func (s *Service) Quotations(ctx context.Context, actor types.Actor, caseID string) ([]*types.Quotation, error) {
	c, err := s.store.Case(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, c); err != nil {
		return nil, err
	}

	quotations, err := s.store.Quotations(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if actor.Role != types.RoleNBFC {
		return quotations, nil
	}

	own := make([]*types.Quotation, 0, 1)
	for _, q := range quotations {
		if q.NBFCID == actor.OrgID {
			own = append(own, q)
		}
	}
	return own, nil
}

func visibleToLenders(status types.CaseStatus) bool {
	return lifecycle.StageIndex(status) >= lifecycle.StageIndex(types.CaseStatusSharedWithNBFC)
}
