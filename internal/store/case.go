package store

import (
	"context"
	"fmt"

	"gryork/internal/utils"
	"gryork/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	caseTableName     = "gryork.cases"
	timelineTableName = "gryork.case_timeline"
)

var (
	caseColumns     = utils.StructTagValues(types.Case{})
	timelineColumns = utils.StructTagValues(types.TimelineEntry{})
)

// CaseRepository persists cases together with their timeline and quotations.
// Every status change is a conditional update on the expected current status,
// so two racing writers cannot both succeed.
type CaseRepository struct {
	pool *pgxpool.Pool
}

func NewCaseRepository(pool *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{pool: pool}
}

func (r *CaseRepository) CreateCase(ctx context.Context, c *types.Case, first *types.TimelineEntry) error {
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		query, args, err := psql().Insert(caseTableName).SetMap(utils.StructToMap(c)).ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert case query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert case: %w", err)
		}

		return insertTimelineEntry(ctx, tx, first)
	})

	return types.NewStorageError("create case", err)
}

func (r *CaseRepository) Case(ctx context.Context, caseID string) (*types.Case, error) {
	query, args, err := psql().Select(caseColumns...).From(caseTableName).
		Where(sq.Eq{"id": caseID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate case query: %w", err)
	}

	var c = new(types.Case)
	err = pgxscan.Get(ctx, r.pool, c, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, &types.NotFoundError{Entity: "case", ID: caseID}
		}
		return nil, types.NewStorageError("fetch case", err)
	}

	if err := r.loadChildren(ctx, []*types.Case{c}); err != nil {
		return nil, err
	}

	return c, nil
}

// CasesBySubcontractor returns every case owned by subcontractorID, newest
// first. It is not paginated.
func (r *CaseRepository) CasesBySubcontractor(ctx context.Context, subcontractorID string) ([]*types.Case, error) {
	return r.selectCases(ctx, casesSelect(types.CaseFilter{SubcontractorID: subcontractorID}))
}

func (r *CaseRepository) Cases(ctx context.Context, filter types.CaseFilter) ([]*types.Case, error) {
	return r.selectCases(ctx, casesQuery(filter))
}

func (r *CaseRepository) selectCases(ctx context.Context, builder sq.SelectBuilder) ([]*types.Case, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cases query: %w", err)
	}

	var cases = make([]*types.Case, 0)
	err = pgxscan.Select(ctx, r.pool, &cases, query, args...)
	if err != nil {
		return nil, types.NewStorageError("list cases", err)
	}

	if err := r.loadChildren(ctx, cases); err != nil {
		return nil, err
	}

	return cases, nil
}

func casesQuery(filter types.CaseFilter) sq.SelectBuilder {
	limit, offset := PageBounds(filter.Page, filter.Limit)
	return casesSelect(filter).Limit(limit).Offset(offset)
}

// casesSelect filters and orders cases newest first without paging.
func casesSelect(filter types.CaseFilter) sq.SelectBuilder {
	where := sq.Eq{}
	if filter.SubcontractorID != "" {
		where["subcontractor_id"] = filter.SubcontractorID
	}
	if filter.Status != "" {
		where["status"] = filter.Status
	}

	return psql().Select(caseColumns...).From(caseTableName).
		Where(where).
		OrderBy("created_at DESC", "id DESC")
}

// AdvanceStatus moves a case from expected to entry.Status and appends entry.
// It returns types.ErrStatusConflict when the case is no longer at expected.
func (r *CaseRepository) AdvanceStatus(ctx context.Context, caseID string, expected types.CaseStatus, entry *types.TimelineEntry) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		update := psql().Update(caseTableName).
			Set("status", entry.Status).
			Set("updated_at", entry.CreatedAt).
			Where(sq.Eq{"id": caseID, "status": expected})

		if err := execConditional(ctx, tx, update); err != nil {
			return err
		}

		return insertTimelineEntry(ctx, tx, entry)
	})
}

// AddQuotation appends q while the case is still at expected and has no
// selection. A non-nil entry also moves the case to entry.Status.
func (r *CaseRepository) AddQuotation(ctx context.Context, q *types.Quotation, expected types.CaseStatus, entry *types.TimelineEntry) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		update := psql().Update(caseTableName).
			Set("updated_at", q.QuotedAt).
			Where(sq.Eq{"id": q.CaseID, "status": expected, "selected_quotation_id": nil})
		if entry != nil {
			update = update.Set("status", entry.Status)
		}

		if err := execConditional(ctx, tx, update); err != nil {
			return err
		}

		query, args, err := psql().Insert(quotationTableName).SetMap(utils.StructToMap(q)).ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert quotation query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return types.ErrDuplicateQuote
			}
			return types.NewStorageError("insert quotation", err)
		}

		if entry == nil {
			return nil
		}
		return insertTimelineEntry(ctx, tx, entry)
	})
}

// SelectQuotation locks q as the case's selected quotation. Only one caller can
// ever win: the update requires an empty selection and QUOTATIONS_RECEIVED.
func (r *CaseRepository) SelectQuotation(ctx context.Context, q *types.Quotation, entry *types.TimelineEntry) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		update := psql().Update(caseTableName).
			Set("status", entry.Status).
			Set("selected_quotation_id", q.ID).
			Set("selected_nbfc_id", q.NBFCID).
			Set("updated_at", entry.CreatedAt).
			Where(sq.Eq{
				"id":                    q.CaseID,
				"status":                types.CaseStatusQuotationsReceived,
				"selected_quotation_id": nil,
			})

		if err := execConditional(ctx, tx, update); err != nil {
			return err
		}

		return insertTimelineEntry(ctx, tx, entry)
	})
}

func execConditional(ctx context.Context, tx pgx.Tx, update sq.UpdateBuilder) error {
	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate conditional update query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return types.NewStorageError("update case", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStatusConflict
	}

	return nil
}

func insertTimelineEntry(ctx context.Context, tx pgx.Tx, entry *types.TimelineEntry) error {
	query, args, err := psql().Insert(timelineTableName).SetMap(utils.StructToMap(entry)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert timeline query: %w", err)
	}

	_, err = tx.Exec(ctx, query, args...)
	if err != nil {
		// (case_id, sequence) is unique: someone else appended first
		if isUniqueViolation(err) {
			return types.ErrStatusConflict
		}
		return types.NewStorageError("insert timeline entry", err)
	}

	return nil
}

// loadChildren attaches timelines and quotations to cases with two queries.
func (r *CaseRepository) loadChildren(ctx context.Context, cases []*types.Case) error {
	if len(cases) == 0 {
		return nil
	}

	ids := make([]string, len(cases))
	byID := make(map[string]*types.Case, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
		byID[c.ID] = c
		c.Timeline = make([]*types.TimelineEntry, 0)
		c.Quotations = make([]*types.Quotation, 0)
	}

	query, args, err := psql().Select(timelineColumns...).From(timelineTableName).
		Where(sq.Eq{"case_id": ids}).
		OrderBy("case_id", "sequence ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate timeline query: %w", err)
	}

	var entries []*types.TimelineEntry
	if err := pgxscan.Select(ctx, r.pool, &entries, query, args...); err != nil {
		return types.NewStorageError("fetch timeline", err)
	}
	for _, e := range entries {
		byID[e.CaseID].Timeline = append(byID[e.CaseID].Timeline, e)
	}

	quotations, err := selectQuotations(ctx, r.pool, sq.Eq{"case_id": ids})
	if err != nil {
		return err
	}
	for _, q := range quotations {
		byID[q.CaseID].Quotations = append(byID[q.CaseID].Quotations, q)
	}

	return nil
}

// CaseNumberSequence hands out case numbers from a Postgres sequence. It is
// used when no Redis is configured.
type CaseNumberSequence struct {
	pool *pgxpool.Pool
}

func NewCaseNumberSequence(pool *pgxpool.Pool) *CaseNumberSequence {
	return &CaseNumberSequence{pool: pool}
}

func (s *CaseNumberSequence) Next(ctx context.Context, _ int) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT nextval('gryork.case_number_seq')").Scan(&n)
	if err != nil {
		return 0, types.NewStorageError("next case number", err)
	}
	return n, nil
}
