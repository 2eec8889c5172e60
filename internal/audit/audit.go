// Package audit records who did what to which entity. Recording is best
// effort: a failed write is logged and counted but never fails the business
// operation that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gryork/internal/metrics"
	"gryork/internal/utils"
	"gryork/pkg/types"

	"github.com/sirupsen/logrus"
)

type Store interface {
	InsertAuditLog(ctx context.Context, entry *types.AuditLogEntry) error
	AuditLogs(ctx context.Context, filter types.AuditLogFilter) (*types.AuditLogPage, error)
	CategoryCounts(ctx context.Context, from, to time.Time) ([]*types.AuditCategoryCount, error)
}

// Result is the outcome of Record. ID is empty when Err is set.
type Result struct {
	ID  string
	Err error
}

func (r Result) OK() bool {
	return r.Err == nil
}

const collectPageSize = 200

type Writer struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewWriter(store Store, logger *logrus.Logger) *Writer {
	return &Writer{store: store, logger: logger, now: time.Now}
}

// Record stores entry, assigning its ID and timestamp when unset.
func (w *Writer) Record(ctx context.Context, entry *types.AuditLogEntry) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = w.failed(entry, fmt.Errorf("audit store panicked: %v", r))
		}
	}()

	if entry.ID == "" {
		entry.ID = utils.NanoID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = w.now()
	}

	if err := w.store.InsertAuditLog(ctx, entry); err != nil {
		return w.failed(entry, err)
	}

	return Result{ID: entry.ID}
}

func (w *Writer) failed(entry *types.AuditLogEntry, err error) Result {
	metrics.AuditWriteFailures.Inc()
	w.logger.WithError(err).WithFields(logrus.Fields{
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"user_id":     entry.UserID,
	}).Error("failed to record audit log entry")

	return Result{Err: err}
}

func (w *Writer) Query(ctx context.Context, filter types.AuditLogFilter) (*types.AuditLogPage, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, types.NewValidationError("from: must be before to")
	}
	return w.store.AuditLogs(ctx, filter)
}

// Collect pages through every entry matching filter, newest first, stopping
// at max entries. filter's Page and Limit are ignored.
func (w *Writer) Collect(ctx context.Context, filter types.AuditLogFilter, max int) ([]*types.AuditLogEntry, error) {
	entries := make([]*types.AuditLogEntry, 0)

	filter.Limit = collectPageSize
	for filter.Page = 1; len(entries) < max; filter.Page++ {
		page, err := w.Query(ctx, filter)
		if err != nil {
			return nil, err
		}

		entries = append(entries, page.Entries...)
		if len(page.Entries) < int(page.Limit) || int64(len(entries)) >= page.Total {
			break
		}
	}

	if len(entries) > max {
		entries = entries[:max]
	}
	return entries, nil
}

// Stats counts entries per category in [from, to).
func (w *Writer) Stats(ctx context.Context, from, to time.Time) ([]*types.AuditCategoryCount, error) {
	if !from.Before(to) {
		return nil, types.NewValidationError("from: must be before to")
	}
	return w.store.CategoryCounts(ctx, from, to)
}

// Entry starts an entry attributed to actor. The entry is marked successful.
func Entry(actor types.Actor, action types.AuditAction, category types.AuditCategory, entityType, entityID, description string) *types.AuditLogEntry {
	entry := &types.AuditLogEntry{
		UserID:      actor.ID,
		UserName:    utils.NilIfBlank(actor.Name),
		UserRole:    actor.Role,
		Action:      action,
		Category:    category,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Success:     true,
		IPAddress:   utils.NilIfBlank(actor.IPAddress),
		UserAgent:   utils.NilIfBlank(actor.UserAgent),
	}
	return entry
}

// WithChange attaches before and after snapshots. Values that cannot be
// encoded are dropped rather than failing the record.
func WithChange(entry *types.AuditLogEntry, previous, next any) *types.AuditLogEntry {
	entry.PreviousValue = snapshot(previous)
	entry.NewValue = snapshot(next)
	return entry
}

func snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
