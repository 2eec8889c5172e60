package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gryork/internal/utils"
	"gryork/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditLogTableName = "gryork.audit_logs"

var auditLogColumns = utils.StructTagValues(types.AuditLogEntry{})

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

func (r *AuditLogRepository) InsertAuditLog(ctx context.Context, entry *types.AuditLogEntry) error {
	query, args, err := psql().Insert(auditLogTableName).SetMap(utils.StructToMap(entry)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert audit log query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return types.NewStorageError("insert audit log", err)
}

func (r *AuditLogRepository) AuditLogs(ctx context.Context, filter types.AuditLogFilter) (*types.AuditLogPage, error) {
	limit, offset := PageBounds(filter.Page, filter.Limit)
	where := auditLogWhere(filter)

	countQuery, countArgs, err := psql().Select("count(*)").From(auditLogTableName).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate audit log count query: %w", err)
	}

	page := &types.AuditLogPage{Page: offset/limit + 1, Limit: limit, Entries: make([]*types.AuditLogEntry, 0)}
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&page.Total); err != nil {
		return nil, types.NewStorageError("count audit logs", err)
	}

	query, args, err := psql().Select(auditLogColumns...).From(auditLogTableName).
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate audit log query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.pool, &page.Entries, query, args...); err != nil {
		return nil, types.NewStorageError("fetch audit logs", err)
	}

	return page, nil
}

// CategoryCounts summarises entries per category within [from, to).
func (r *AuditLogRepository) CategoryCounts(ctx context.Context, from, to time.Time) ([]*types.AuditCategoryCount, error) {
	query, args, err := psql().Select("category", "count(*) AS count").From(auditLogTableName).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		GroupBy("category").
		OrderBy("count DESC", "category ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate audit stats query: %w", err)
	}

	var counts = make([]*types.AuditCategoryCount, 0)
	if err := pgxscan.Select(ctx, r.pool, &counts, query, args...); err != nil {
		return nil, types.NewStorageError("audit stats", err)
	}

	return counts, nil
}

func auditLogWhere(filter types.AuditLogFilter) sq.And {
	where := sq.And{}

	eq := sq.Eq{}
	if filter.UserID != "" {
		eq["user_id"] = filter.UserID
	}
	if filter.Action != "" {
		eq["action"] = filter.Action
	}
	if filter.Category != "" {
		eq["category"] = filter.Category
	}
	if filter.EntityType != "" {
		eq["entity_type"] = filter.EntityType
	}
	if filter.EntityID != "" {
		eq["entity_id"] = filter.EntityID
	}
	if len(eq) > 0 {
		where = append(where, eq)
	}

	if filter.From != nil {
		where = append(where, sq.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, sq.Lt{"created_at": *filter.To})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"description": pattern},
			sq.ILike{"user_name": pattern},
			sq.ILike{"entity_ref": pattern},
		})
	}

	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
