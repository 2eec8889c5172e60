package store

import (
	"context"
	"fmt"

	"gryork/internal/utils"
	"gryork/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quotationTableName = "gryork.nbfc_quotations"

var quotationColumns = utils.StructTagValues(types.Quotation{})

// Quotations returns a case's quotations in the order they were submitted.
func (r *CaseRepository) Quotations(ctx context.Context, caseID string) ([]*types.Quotation, error) {
	return selectQuotations(ctx, r.pool, sq.Eq{"case_id": caseID})
}

func selectQuotations(ctx context.Context, pool *pgxpool.Pool, where sq.Sqlizer) ([]*types.Quotation, error) {
	query, args, err := psql().Select(quotationColumns...).From(quotationTableName).
		Where(where).
		OrderBy("quoted_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quotations query: %w", err)
	}

	var quotations = make([]*types.Quotation, 0)
	if err := pgxscan.Select(ctx, pool, &quotations, query, args...); err != nil {
		return nil, types.NewStorageError("fetch quotations", err)
	}

	return quotations, nil
}
