// Package careers handles job applications submitted from the public careers
// page and their review by the founding team.
package careers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gryork/internal/audit"
	"gryork/internal/validation"
	"gryork/pkg/types"
)

type Store interface {
	CreateApplication(ctx context.Context, app *types.CareerApplication) error
	Application(ctx context.Context, id string) (*types.CareerApplication, error)
	Applications(ctx context.Context, filter types.ApplicationFilter) ([]*types.CareerApplication, error)
	UpdateApplication(ctx context.Context, app *types.CareerApplication) error
}

type Service struct {
	store Store
	audit *audit.Writer
	now   func() time.Time
}

func New(store Store, auditor *audit.Writer) *Service {
	return &Service{store: store, audit: auditor, now: time.Now}
}

// Submit stores a public application. applicant carries only the request
// metadata (IP address, user agent) since the caller is anonymous.
func (s *Service) Submit(ctx context.Context, applicant types.Actor, app *types.CareerApplication) (*types.CareerApplication, error) {
	app.FullName = strings.TrimSpace(app.FullName)
	app.Email = strings.ToLower(strings.TrimSpace(app.Email))
	app.Position = strings.TrimSpace(app.Position)

	if err := validation.CareerApplication(app); err != nil {
		return nil, err
	}

	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	applicant.ID = app.Email
	applicant.Name = app.FullName
	entry := audit.Entry(applicant, types.AuditActionApplicationSubmitted, types.AuditCategoryCareer, "career_application", app.ID,
		fmt.Sprintf("Application for %s", app.Position))
	s.audit.Record(ctx, entry)

	return app, nil
}

func (s *Service) List(ctx context.Context, filter types.ApplicationFilter) ([]*types.CareerApplication, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, types.NewValidationError(fmt.Sprintf("status: %q is not a valid application status", filter.Status))
	}
	return s.store.Applications(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*types.CareerApplication, error) {
	return s.store.Application(ctx, id)
}

// Review updates status and notes. Only admins and founders review.
func (s *Service) Review(ctx context.Context, reviewer types.Actor, id string, review types.ApplicationReview) (*types.CareerApplication, error) {
	if !reviewer.HasRole(types.RoleAdmin, types.RoleFounder) {
		return nil, types.ErrForbidden
	}
	if err := validation.ApplicationReview(review); err != nil {
		return nil, err
	}

	app, err := s.store.Application(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := app.Status
	reviewedAt := s.now().UTC()
	reviewerID := reviewer.ID

	app.Status = review.Status
	if review.AdminNotes != nil {
		app.AdminNotes = review.AdminNotes
	}
	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &reviewedAt

	if err := s.store.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}

	entry := audit.Entry(reviewer, types.AuditActionApplicationReviewed, types.AuditCategoryCareer, "career_application", app.ID,
		fmt.Sprintf("Marked %s's application as %s", app.FullName, app.Status))
	entry.EntityRef = &app.Email
	s.audit.Record(ctx, audit.WithChange(entry, map[string]any{"status": previous}, map[string]any{"status": app.Status}))

	return app, nil
}
