package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// ErrUnbalancedLedger is returned when a group's net balances do not sum
// to zero. Balances are derived from debts that always add and subtract
// the same amount, so a violation means corrupted state upstream; the
// simplifier refuses to produce a transfer set from it.
var ErrUnbalancedLedger = errors.New("unbalanced ledger")

type party struct {
	id     string
	amount money.Money // magnitude, always positive
}

// Simplify reduces a set of unsettled debts to a small set of
// point-to-point transfers that drives every net balance to zero.
//
// Greedy matching: repeatedly take the debtor with the largest
// outstanding magnitude (ties broken by lower user ID) and pair it with
// the largest creditor reachable from it through the residual debt
// graph, then route as much as both positions and the paths between
// them allow. Pairing only reachable users keeps every transfer
// settleable against the underlying debts: a creditor with no debt path
// from the debtor is never chosen, however large its balance. The
// result is deterministic, and settling the transfers in the returned
// order settles the whole group. The transfer count is minimal for
// common cases, best-effort in general.
func Simplify(debts []*models.Debt) ([]models.Transfer, error) {
	g := newFlowGraph(debts)
	var transfers []models.Transfer
	for {
		balances := g.balances()
		debtors := sortedParties(balances, true)
		if len(debtors) == 0 {
			return transfers, nil
		}
		debtor := debtors[0]

		var creditor *party
		for _, c := range sortedParties(balances, false) {
			if g.findPath(debtor.id, c.id) != nil {
				creditor = &c
				break
			}
		}
		if creditor == nil {
			return nil, fmt.Errorf("%w: %s owes %s with no debt path to any creditor",
				ErrUnbalancedLedger, debtor.id, debtor.amount)
		}

		want := debtor.amount
		if creditor.amount.Cmp(want) < 0 {
			want = creditor.amount
		}
		_, realized := g.route(debtor.id, creditor.id, want)
		if !realized.IsPositive() {
			return nil, fmt.Errorf("%w: no capacity between %s and %s",
				ErrUnbalancedLedger, debtor.id, creditor.id)
		}
		transfers = append(transfers, models.Transfer{
			FromID: debtor.id,
			ToID:   creditor.id,
			Amount: realized,
		})
	}
}

// ApplyTransfers folds a transfer set back into a balance vector:
// subtract outgoing, add incoming. Applied to the output of Simplify it
// reproduces the net balances of the input debts (zero entries
// omitted).
func ApplyTransfers(transfers []models.Transfer) map[string]money.Money {
	balances := make(map[string]money.Money)
	for _, t := range transfers {
		balances[t.FromID] = balances[t.FromID].Sub(t.Amount)
		balances[t.ToID] = balances[t.ToID].Add(t.Amount)
	}
	return balances
}

// sortedParties filters one side of the balance sheet (debtors when
// debtors is true, creditors otherwise) and orders it by magnitude
// descending, lower ID first on ties.
func sortedParties(balances map[string]money.Money, debtors bool) []party {
	var out []party
	for id, b := range balances {
		switch {
		case debtors && b.IsNegative():
			out = append(out, party{id: id, amount: b.Neg()})
		case !debtors && b.IsPositive():
			out = append(out, party{id: id, amount: b})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].amount.Cmp(out[j].amount); c != 0 {
			return c > 0
		}
		return out[i].id < out[j].id
	})
	return out
}
