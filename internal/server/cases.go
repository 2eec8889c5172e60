package server

import (
	"net/http"

	"gryork/internal/validation"
	"gryork/pkg/types"

	"github.com/alexedwards/flow"
)

type transitionRequest struct {
	Status types.CaseStatus `json:"status"`
	Notes  string           `json:"notes"`
}

type quotationRequest struct {
	NBFCID string `json:"nbfcId"`
	types.QuotationTerms
}

type selectionRequest struct {
	NBFCID string `json:"nbfcId"`
}

func (s *Service) handlePostCase(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var payload types.NewCase
	if err := s.decodeJSON(r, validation.SchemaNewCase, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.cases.CreateCase(r.Context(), actor, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Service) handleListCases(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var filter types.CaseFilter
	if err := decodeQuery(r, &filter); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		list []*types.Case
		err  error
	)
	if actor.Role == types.RoleSubcontractor && filter.Status == "" {
		list, err = s.cases.ListCasesForSubcontractor(r.Context(), actor.ID)
	} else {
		list, err = s.cases.ListCases(r.Context(), actor, filter)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleGetCase(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	c, err := s.cases.GetCase(r.Context(), actor, flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}

func (s *Service) handlePostTransition(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req transitionRequest
	if err := s.decodeJSON(r, validation.SchemaTransition, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.cases.Transition(r.Context(), actor, flow.Param(r.Context(), "id"), req.Status, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}

func (s *Service) handleGetSLA(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	report, err := s.cases.SLA(r.Context(), actor, flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleListQuotations(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	quotations, err := s.cases.Quotations(r.Context(), actor, flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, quotations)
}

func (s *Service) handlePostQuotation(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req quotationRequest
	if err := s.decodeJSON(r, validation.SchemaQuotation, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	q, err := s.cases.SubmitQuotation(r.Context(), actor, flow.Param(r.Context(), "id"), req.NBFCID, req.QuotationTerms)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, q)
}

func (s *Service) handlePostSelection(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req selectionRequest
	if err := s.decodeJSON(r, validation.SchemaSelection, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.cases.SelectQuotation(r.Context(), actor, flow.Param(r.Context(), "id"), req.NBFCID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}
