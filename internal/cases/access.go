package cases

import "gryork/pkg/types"

// authorizeView lets staff see every case, sub-contractors their own and
// NBFCs cases that have reached the lenders.
func authorizeView(actor types.Actor, c *types.Case) error {
	switch actor.Role {
	case types.RoleSubcontractor:
		if c.SubcontractorID != actor.ID {
			return types.ErrForbidden
		}
	case types.RoleNBFC:
		if !visibleToLenders(c.Status) && c.QuotationFrom(actor.OrgID) == nil {
			return types.ErrForbidden
		}
	}
	return nil
}

// authorizeOwner admits the owning sub-contractor and staff acting for them.
func authorizeOwner(actor types.Actor, c *types.Case) error {
	switch actor.Role {
	case types.RoleSubcontractor:
		if c.SubcontractorID != actor.ID {
			return types.ErrForbidden
		}
		return nil
	case types.RoleOps, types.RoleAdmin, types.RoleFounder:
		return nil
	default:
		return types.ErrForbidden
	}
}

// redact hides competing quotations from an NBFC, and which lender won when
// it was someone else.
func redact(actor types.Actor, c *types.Case) *types.Case {
	if actor.Role != types.RoleNBFC {
		return c
	}

	if c.SelectedNBFCID != nil && *c.SelectedNBFCID != actor.OrgID {
		c.SelectedNBFCID = nil
		c.SelectedQuotationID = nil
	}

	own := make([]*types.Quotation, 0, 1)
	for _, q := range c.Quotations {
		if q.NBFCID == actor.OrgID {
			own = append(own, q)
		}
	}
	c.Quotations = own
	return c
}

// authorizeTransition admits staff for any manual change. The EPC buyer only
// records its own verification decision, a sub-contractor may only cancel
// their own case and NBFCs never change status directly.
func authorizeTransition(actor types.Actor, c *types.Case, to types.CaseStatus) error {
	switch actor.Role {
	case types.RoleOps, types.RoleRMT, types.RoleAdmin, types.RoleFounder, types.RoleSystem:
		return nil
	case types.RoleEPC:
		if to == types.CaseStatusBuyerApproved || to == types.CaseStatusBuyerRejected {
			return nil
		}
	case types.RoleSubcontractor:
		if c.SubcontractorID == actor.ID && to == types.CaseStatusCancelled {
			return nil
		}
	}
	return types.ErrForbidden
}
