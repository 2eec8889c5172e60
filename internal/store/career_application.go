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

const careerApplicationTableName = "gryork.career_applications"

var careerApplicationColumns = utils.StructTagValues(types.CareerApplication{})

type CareerApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewCareerApplicationRepository(pool *pgxpool.Pool) *CareerApplicationRepository {
	return &CareerApplicationRepository{pool: pool}
}

func (r *CareerApplicationRepository) CreateApplication(ctx context.Context, app *types.CareerApplication) error {
	now := time.Now()
	app.ID = utils.NanoID()
	app.Status = types.ApplicationStatusNew
	app.CreatedAt = now
	app.UpdatedAt = now

	query, args, err := psql().Insert(careerApplicationTableName).SetMap(utils.StructToMap(app)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert application query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return types.NewStorageError("create career application", err)
}

func (r *CareerApplicationRepository) Application(ctx context.Context, id string) (*types.CareerApplication, error) {
	query, args, err := psql().Select(careerApplicationColumns...).From(careerApplicationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application query: %w", err)
	}

	var app = new(types.CareerApplication)
	err = pgxscan.Get(ctx, r.pool, app, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, &types.NotFoundError{Entity: "career application", ID: id}
		}
		return nil, types.NewStorageError("fetch career application", err)
	}

	return app, nil
}

func (r *CareerApplicationRepository) Applications(ctx context.Context, filter types.ApplicationFilter) ([]*types.CareerApplication, error) {
	limit, offset := PageBounds(filter.Page, filter.Limit)

	where := sq.Eq{}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.Position != "" {
		where["position"] = filter.Position
	}

	query, args, err := psql().Select(careerApplicationColumns...).From(careerApplicationTableName).
		Where(where).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate applications query: %w", err)
	}

	var apps = make([]*types.CareerApplication, 0)
	if err := pgxscan.Select(ctx, r.pool, &apps, query, args...); err != nil {
		return nil, types.NewStorageError("list career applications", err)
	}

	return apps, nil
}

// UpdateApplication writes the review fields only; applicant data never changes.
func (r *CareerApplicationRepository) UpdateApplication(ctx context.Context, app *types.CareerApplication) error {
	app.UpdatedAt = time.Now()

	query, args, err := psql().Update(careerApplicationTableName).
		Set("status", app.Status).
		Set("admin_notes", app.AdminNotes).
		Set("reviewed_by", app.ReviewedBy).
		Set("reviewed_at", app.ReviewedAt).
		Set("updated_at", app.UpdatedAt).
		Where(sq.Eq{"id": app.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update application query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return types.NewStorageError("update career application", err)
	}
	if tag.RowsAffected() == 0 {
		return &types.NotFoundError{Entity: "career application", ID: app.ID}
	}

	return nil
}
