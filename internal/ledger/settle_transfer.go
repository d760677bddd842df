package ledger

import (
	"context"
	"fmt"

	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// SettleTransfer realizes a simplified transfer against the group's
// unsettled debts. A transfer is not a stored entity: paying it marks
// underlying debts between — and transitively through — the two parties
// as settled, for exactly the transfer amount.
//
// Debts are consumed oldest-first along each payment path, using the
// same routing the simplifier uses to emit transfers. When the amount
// lands inside a debt, that boundary debt is split: the settled portion
// becomes its own settled record while the debt itself keeps its ID,
// its age, and the unsettled remainder. Settlement changes only the
// settled/unsettled partition, never the net obligation. The whole
// operation commits atomically; it fails with ErrInvalidSettlement if
// the amount cannot be realized.
//
// The affected debts are returned: fully settled ones, the reduced
// remainders of split debts, and the new settled-portion records.
func (l *Ledger) SettleTransfer(ctx context.Context, groupID string, transfer models.Transfer) ([]*models.Debt, error) {
	if !transfer.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %s must be positive", ErrInvalidSettlement, transfer.Amount)
	}
	if transfer.FromID == transfer.ToID {
		return nil, fmt.Errorf("%w: transfer from a user to themselves", ErrInvalidSettlement)
	}

	lock := l.groupLock(groupID)
	lock.Lock()
	defer lock.Unlock()

	debts, err := l.store.UnsettledDebts(ctx, groupID)
	if err != nil {
		return nil, err
	}

	consumed, realized := calculator.RouteTransfer(debts, transfer)
	if realized != transfer.Amount {
		return nil, fmt.Errorf("%w: only %s of %s realizable between %s and %s",
			ErrInvalidSettlement, realized, transfer.Amount, transfer.FromID, transfer.ToID)
	}

	plan := &storage.SettlementPlan{}
	var affected []*models.Debt
	for _, d := range debts {
		used := consumed[d.ID]
		if used.IsZero() {
			continue
		}
		if used == d.Amount {
			plan.SettleIDs = append(plan.SettleIDs, d.ID)
			settled := *d
			settled.Settled = true
			affected = append(affected, &settled)
		} else {
			plan.Splits = append(plan.Splits, storage.DebtSplit{
				DebtID:    d.ID,
				Settled:   used,
				Remainder: d.Amount.Sub(used),
			})
			remainder := *d
			remainder.Amount = d.Amount.Sub(used)
			affected = append(affected, &remainder)
		}
	}

	portions, err := l.store.ApplySettlement(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("settle transfer: %w", err)
	}
	return append(affected, portions...), nil
}
