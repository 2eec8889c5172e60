package seed

import (
	"context"
	"fmt"

	"gryork/internal/audit"
	"gryork/internal/utils"
	"gryork/pkg/types"

	"github.com/sirupsen/logrus"
)

type NBFCStore interface {
	AllNBFCs(ctx context.Context) ([]*types.NBFC, error)
	UpsertNBFC(ctx context.Context, nbfc *types.NBFC) error
	DeactivateNBFC(ctx context.Context, id string) error
}

// Partners is the source of truth for lending partners:
// - new entries are inserted
// - changed entries are updated
// - partners missing from this list are deactivated, never deleted, because
//   quotations keep referencing them
//
// To generate new IDs: `go run ./cmd/gryork nanoid`
var Partners = []types.NBFC{
	{
		ID:              "q3V8sKd1LwYx0pTz7RmBn4HcJfUa2GeE",
		Name:            "Aditya Finance",
		Slug:            "aditya-finance",
		RBIRegistration: utils.StringPtr("N-13.02214"),
		IsActive:        true,
	},
	{
		ID:              "Zm6Tq1rWc8NvXb3Hk0LsPd5YjGa9FeUo",
		Name:            "Bharat Capital",
		Slug:            "bharat-capital",
		RBIRegistration: utils.StringPtr("B-14.03187"),
		IsActive:        true,
	},
	{
		ID:              "Jt2Rk7PwQe4Ym9Lx1CnVb6ZsHd0GfAo3",
		Name:            "Kaveri Credit",
		Slug:            "kaveri-credit",
		RBIRegistration: utils.StringPtr("N-07.00952"),
		IsActive:        true,
	},
	{
		ID:              "Hs5Gd8Kf2Lq0Wz3Xc7Vb1Nm4Pj6Rt9Ya",
		Name:            "Sahyadri Leasing",
		Slug:            "sahyadri-leasing",
		RBIRegistration: utils.StringPtr("B-13.01876"),
		IsActive:        true,
	},
}

type Result struct {
	Upserted    int
	Deactivated int
}

// SeedNBFCs syncs the NBFC table with partners. The auditor may be nil.
func SeedNBFCs(ctx context.Context, repo NBFCStore, partners []types.NBFC, auditor *audit.Writer, logger logrus.FieldLogger) (Result, error) {
	var result Result

	seedIDs := make(map[string]bool, len(partners))
	for _, nbfc := range partners {
		seedIDs[nbfc.ID] = true
	}

	existing, err := repo.AllNBFCs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch existing nbfcs: %w", err)
	}
	logger.WithFields(logrus.Fields{"seed": len(partners), "existing": len(existing)}).Info("starting nbfc sync")

	for _, nbfc := range existing {
		if seedIDs[nbfc.ID] || !nbfc.IsActive {
			continue
		}
		logger.WithField("nbfc_id", nbfc.ID).Infof("deactivating nbfc %s", nbfc.Name)
		if err := repo.DeactivateNBFC(ctx, nbfc.ID); err != nil {
			return result, fmt.Errorf("failed to deactivate nbfc %s: %w", nbfc.ID, err)
		}
		result.Deactivated++
	}

	for _, nbfc := range partners {
		logger.WithField("slug", nbfc.Slug).Debug("upserting nbfc")
		if err := repo.UpsertNBFC(ctx, &nbfc); err != nil {
			return result, fmt.Errorf("failed to upsert nbfc %s: %w", nbfc.Slug, err)
		}
		result.Upserted++
	}

	if auditor != nil {
		system := types.Actor{ID: "system", Name: "seed", Role: types.RoleSystem}
		auditor.Record(ctx, audit.Entry(system, types.AuditActionNBFCSeeded, types.AuditCategorySystem, "nbfc", "",
			fmt.Sprintf("Synced NBFC partners: %d upserted, %d deactivated", result.Upserted, result.Deactivated)))
	}

	logger.WithFields(logrus.Fields{"upserted": result.Upserted, "deactivated": result.Deactivated}).Info("nbfc sync complete")
	return result, nil
}
