package seed

import (
	"context"
	"testing"

	"gryork/internal/audit"
	"gryork/internal/store/memory"
	"gryork/pkg/types"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedNBFCs(t *testing.T) {
	ctx := context.Background()
	logger, _ := logtest.NewNullLogger()
	mem := memory.New()

	retired := &types.NBFC{ID: "retired", Name: "Old Partner", Slug: "old-partner", IsActive: true}
	require.NoError(t, mem.UpsertNBFC(ctx, retired))

	result, err := SeedNBFCs(ctx, mem, Partners, audit.NewWriter(mem, logger), logger)
	require.NoError(t, err)
	assert.Equal(t, Result{Upserted: len(Partners), Deactivated: 1}, result)

	active, err := mem.ActiveNBFCs(ctx)
	require.NoError(t, err)
	assert.Len(t, active, len(Partners))

	old, err := mem.NBFC(ctx, "retired")
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	page, err := mem.AuditLogs(ctx, types.AuditLogFilter{Action: types.AuditActionNBFCSeeded})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	// a second run changes nothing
	result, err = SeedNBFCs(ctx, mem, Partners, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deactivated)
}

func TestPartnersAreUnique(t *testing.T) {
	ids := map[string]bool{}
	slugs := map[string]bool{}
	for _, p := range Partners {
		assert.Len(t, p.ID, 32, p.Name)
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		assert.False(t, slugs[p.Slug], "duplicate slug %s", p.Slug)
		ids[p.ID] = true
		slugs[p.Slug] = true
	}
}
