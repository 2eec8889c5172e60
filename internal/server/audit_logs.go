package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"gryork/internal/audit"
	"gryork/pkg/types"
)

const maxExportEntries = 10000

type statsQuery struct {
	From *time.Time `form:"from"`
	To   *time.Time `form:"to"`
}

func (s *Service) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	var filter types.AuditLogFilter
	if err := decodeQuery(r, &filter); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.audit.Query(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, page)
}

func (s *Service) handleExportAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	format, err := audit.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var filter types.AuditLogFilter
	if err := decodeQuery(r, &filter); err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.audit.Collect(r.Context(), filter, maxExportEntries)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := audit.Export(&buf, format, entries); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry(actor, types.AuditActionAuditLogExported, types.AuditCategoryAdmin, "audit_log", "",
		fmt.Sprintf("Exported %d audit log entries as %s", len(entries), format)))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleAuditStats defaults to the last 30 days.
func (s *Service) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	var query statsQuery
	if err := decodeQuery(r, &query); err != nil {
		s.writeError(w, r, err)
		return
	}

	to := time.Now().UTC()
	if query.To != nil {
		to = *query.To
	}
	from := to.AddDate(0, 0, -30)
	if query.From != nil {
		from = *query.From
	}

	counts, err := s.audit.Stats(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"from":       from,
		"to":         to,
		"categories": counts,
	})
}
