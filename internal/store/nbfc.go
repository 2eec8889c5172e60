package store

import (
	"context"
	"fmt"
	"time"

	"gryork/internal/utils"
	"gryork/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const nbfcTableName = "gryork.nbfcs"

var nbfcColumns = utils.StructTagValues(types.NBFC{})

type NBFCRepository struct {
	pool *pgxpool.Pool
}

func NewNBFCRepository(pool *pgxpool.Pool) *NBFCRepository {
	return &NBFCRepository{pool: pool}
}

func (r *NBFCRepository) ActiveNBFCs(ctx context.Context) ([]*types.NBFC, error) {
	query, args, err := psql().
		Select(nbfcColumns...).
		From(nbfcTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nbfcs query: %w", err)
	}

	var nbfcs = make([]*types.NBFC, 0)
	err = pgxscan.Select(ctx, r.pool, &nbfcs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nbfcs: %w", err)
	}

	return nbfcs, nil
}

func (r *NBFCRepository) AllNBFCs(ctx context.Context) ([]*types.NBFC, error) {
	query, args, err := psql().
		Select(nbfcColumns...).
		From(nbfcTableName).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nbfcs query: %w", err)
	}

	var nbfcs []*types.NBFC
	err = pgxscan.Select(ctx, r.pool, &nbfcs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nbfcs: %w", err)
	}

	return nbfcs, nil
}

func (r *NBFCRepository) NBFC(ctx context.Context, id string) (*types.NBFC, error) {
	query, args, err := psql().
		Select(nbfcColumns...).
		From(nbfcTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nbfc query: %w", err)
	}

	var nbfc types.NBFC
	err = pgxscan.Get(ctx, r.pool, &nbfc, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, &types.NotFoundError{Entity: "nbfc", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch nbfc: %w", err)
	}

	return &nbfc, nil
}

func (r *NBFCRepository) UpsertNBFC(ctx context.Context, nbfc *types.NBFC) error {
	if nbfc.CreatedAt.IsZero() {
		nbfc.CreatedAt = time.Now()
	}

	query, args, err := psql().
		Insert(nbfcTableName).
		SetMap(utils.StructToMap(nbfc)).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug, rbi_registration = EXCLUDED.rbi_registration, is_active = EXCLUDED.is_active").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert nbfc query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert nbfc")
}

// DeactivateNBFC retires a partner. Rows are kept because quotations reference them.
func (r *NBFCRepository) DeactivateNBFC(ctx context.Context, id string) error {
	query, args, err := psql().
		Update(nbfcTableName).
		Set("is_active", false).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate deactivate nbfc query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to deactivate nbfc")
}
