package cases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gryork/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitQuotation(t *testing.T) {
	ctx := context.Background()

	t.Run("only while bidding", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), types.CaseStatusBuyerPending)

		_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(500000, "13"))
		var serr *types.InvalidStateError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, types.CaseStatusBuyerPending, serr.Status)
	})

	t.Run("first quotation moves the case once", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)

		_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(500000, "13"))
		require.NoError(t, err)
		_, err = f.svc.SubmitQuotation(ctx, nbfcB, c.ID, "", quote(450000, "12.75"))
		require.NoError(t, err)

		after, err := f.svc.GetCase(ctx, opsUser, c.ID)
		require.NoError(t, err)
		assert.Equal(t, types.CaseStatusQuotationsReceived, after.Status)
		assert.Len(t, after.Timeline, len(c.Timeline)+1)
		require.Len(t, after.Quotations, 2)
		assert.Equal(t, "nbfc-a", after.Quotations[0].NBFCID)
		assert.Equal(t, "nbfc-b", after.Quotations[1].NBFCID)

		assert.Len(t, f.audited(t, types.AuditActionQuotationSubmitted), 2)
	})

	t.Run("one quotation per lender", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)

		_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(500000, "13"))
		require.NoError(t, err)

		_, err = f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(520000, "12"))
		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Error(), "Aditya Finance")
	})

	t.Run("lender directory", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)

		_, err := f.svc.SubmitQuotation(ctx, opsUser, c.ID, "nbfc-zz", quote(500000, "13"))
		assert.ErrorIs(t, err, types.ErrNotFound)

		_, err = f.svc.SubmitQuotation(ctx, opsUser, c.ID, "nbfc-c", quote(500000, "13"))
		var verr *types.ValidationError
		assert.ErrorAs(t, err, &verr)

		_, err = f.svc.SubmitQuotation(ctx, opsUser, c.ID, "", quote(500000, "13"))
		assert.ErrorAs(t, err, &verr)

		q, err := f.svc.SubmitQuotation(ctx, opsUser, c.ID, "nbfc-b", quote(500000, "13"))
		require.NoError(t, err)
		assert.Equal(t, "nbfc-b", q.NBFCID)
	})

	t.Run("lenders quote as themselves", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)

		_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "nbfc-b", quote(500000, "13"))
		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("invalid terms", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)

		terms := quote(500000, "13")
		terms.Tenure = 0
		_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", terms)
		var verr *types.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func biddingCase(t *testing.T, f *fixture) *types.Case {
	t.Helper()
	ctx := context.Background()

	c := f.walk(t, f.create(t), toSharedWithNBFC...)
	_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(500000, "13.5"))
	require.NoError(t, err)
	_, err = f.svc.SubmitQuotation(ctx, nbfcB, c.ID, "", quote(490000, "12.9"))
	require.NoError(t, err)

	c, err = f.svc.GetCase(ctx, opsUser, c.ID)
	require.NoError(t, err)
	return c
}

func TestSelectQuotationIsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := biddingCase(t, f)

	selected, err := f.svc.SelectQuotation(ctx, subcontractor, c.ID, "nbfc-b")
	require.NoError(t, err)
	assert.Equal(t, "nbfc-b", *selected.SelectedNBFCID)
	assert.Equal(t, types.CaseStatusNBFCSelected, selected.Status)

	for _, nbfcID := range []string{"nbfc-a", "nbfc-b", "nbfc-zz"} {
		_, err := f.svc.SelectQuotation(ctx, subcontractor, c.ID, nbfcID)
		assert.ErrorIs(t, err, types.ErrAlreadySelected, nbfcID)
	}

	after, err := f.svc.GetCase(ctx, opsUser, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "nbfc-b", *after.SelectedNBFCID)
	assert.Len(t, after.Timeline, len(selected.Timeline))

	_, err = f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(400000, "11"))
	var serr *types.InvalidStateError
	assert.ErrorAs(t, err, &serr)

	selections := f.audited(t, types.AuditActionQuotationSelected)
	require.Len(t, selections, 4)
	successes := 0
	for _, entry := range selections {
		if entry.Success {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}

func TestSelectQuotationPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong status", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)

		_, err := f.svc.SelectQuotation(ctx, subcontractor, c.ID, "nbfc-a")
		var serr *types.InvalidStateError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("lender without a quotation", func(t *testing.T) {
		f := newFixture(t)
		c := f.walk(t, f.create(t), toSharedWithNBFC...)
		_, err := f.svc.SubmitQuotation(ctx, nbfcA, c.ID, "", quote(500000, "13"))
		require.NoError(t, err)

		_, err = f.svc.SelectQuotation(ctx, subcontractor, c.ID, "nbfc-b")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("only the owner or staff", func(t *testing.T) {
		f := newFixture(t)
		c := biddingCase(t, f)

		_, err := f.svc.SelectQuotation(ctx, otherSub, c.ID, "nbfc-a")
		assert.ErrorIs(t, err, types.ErrForbidden)

		_, err = f.svc.SelectQuotation(ctx, nbfcA, c.ID, "nbfc-a")
		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("unknown case", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SelectQuotation(ctx, opsUser, "missing", "nbfc-a")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestConcurrentSelectionHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := biddingCase(t, f)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nbfcID := "nbfc-a"
			if i%2 == 1 {
				nbfcID = "nbfc-b"
			}
			_, results[i] = f.svc.SelectQuotation(ctx, subcontractor, c.ID, nbfcID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, types.ErrAlreadySelected)
	}
	assert.Equal(t, 1, winners)
}

func TestConcurrentFirstQuotationsBothLand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.walk(t, f.create(t), toSharedWithNBFC...)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, lender := range []types.Actor{nbfcA, nbfcB} {
		wg.Add(1)
		go func(i int, lender types.Actor) {
			defer wg.Done()
			_, errs[i] = f.svc.SubmitQuotation(ctx, lender, c.ID, "", quote(500000, fmt.Sprintf("1%d", i+2)))
		}(i, lender)
	}
	wg.Wait()

	require.NoError(t, errors.Join(errs...))

	after, err := f.svc.GetCase(ctx, opsUser, c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CaseStatusQuotationsReceived, after.Status)
	assert.Len(t, after.Quotations, 2)
	assert.Len(t, after.Timeline, len(c.Timeline)+1)
}

func TestLendersSeeOnlyTheirQuotations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := biddingCase(t, f)

	seen, err := f.svc.GetCase(ctx, nbfcA, c.ID)
	require.NoError(t, err)
	require.Len(t, seen.Quotations, 1)
	assert.Equal(t, "nbfc-a", seen.Quotations[0].NBFCID)

	quotations, err := f.svc.Quotations(ctx, nbfcB, c.ID)
	require.NoError(t, err)
	require.Len(t, quotations, 1)
	assert.Equal(t, "nbfc-b", quotations[0].NBFCID)

	quotations, err = f.svc.Quotations(ctx, subcontractor, c.ID)
	require.NoError(t, err)
	assert.Len(t, quotations, 2)
}

func TestLosingLenderDoesNotSeeWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := biddingCase(t, f)

	_, err := f.svc.SelectQuotation(ctx, subcontractor, c.ID, "nbfc-b")
	require.NoError(t, err)

	lost, err := f.svc.GetCase(ctx, nbfcA, c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CaseStatusNBFCSelected, lost.Status)
	assert.Nil(t, lost.SelectedNBFCID)
	assert.Nil(t, lost.SelectedQuotationID)

	listed, err := f.svc.ListCases(ctx, nbfcA, types.CaseFilter{Status: types.CaseStatusNBFCSelected})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].SelectedNBFCID)

	won, err := f.svc.GetCase(ctx, nbfcB, c.ID)
	require.NoError(t, err)
	require.NotNil(t, won.SelectedNBFCID)
	assert.Equal(t, "nbfc-b", *won.SelectedNBFCID)
	assert.NotNil(t, won.SelectedQuotationID)

	owner, err := f.svc.GetCase(ctx, subcontractor, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "nbfc-b", *owner.SelectedNBFCID)
}
