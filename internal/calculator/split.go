// Package calculator holds the pure computations of the ledger: the
// split engine, which turns an expense total and a split policy into
// per-participant shares, and the simplifier, which reduces a group's
// net balances to a minimal set of transfers. Both are stateless and
// safe for concurrent use.
package calculator

import (
	"errors"
	"fmt"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// ErrInvalidSplit is returned when split policy inputs do not reconcile
// to the expense total. It is a caller error; no state is written.
var ErrInvalidSplit = errors.New("invalid split")

// Split computes per-participant owed amounts for the given total and
// policy. The returned shares always sum exactly to total. Participant
// order is significant: equal splits hand the rounding remainder to the
// first participants, percentage splits hand the residue to the last.
//
// Split never mutates its inputs.
func Split(total money.Money, policy models.SplitPolicy, participants []string) (map[string]money.Money, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidSplit)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total %s must be positive", ErrInvalidSplit, total)
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p] {
			return nil, fmt.Errorf("%w: duplicate participant %q", ErrInvalidSplit, p)
		}
		seen[p] = true
	}

	switch p := policy.(type) {
	case models.EqualSplit:
		return splitEqual(total, participants)
	case models.AmountSplit:
		return splitByAmount(total, p.Amounts, participants)
	case models.PercentSplit:
		return splitByPercent(total, p.Basis, participants)
	}
	return nil, fmt.Errorf("%w: unknown split policy %T", ErrInvalidSplit, policy)
}

func splitEqual(total money.Money, participants []string) (map[string]money.Money, error) {
	parts, err := total.Split(len(participants))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
	}
	shares := make(map[string]money.Money, len(participants))
	for i, p := range participants {
		shares[p] = parts[i]
	}
	return shares, nil
}

func splitByAmount(total money.Money, amounts map[string]money.Money, participants []string) (map[string]money.Money, error) {
	if len(amounts) != len(participants) {
		return nil, fmt.Errorf("%w: %d amounts for %d participants", ErrInvalidSplit, len(amounts), len(participants))
	}
	shares := make(map[string]money.Money, len(participants))
	var sum money.Money
	for _, p := range participants {
		amt, ok := amounts[p]
		if !ok {
			return nil, fmt.Errorf("%w: no amount for participant %q", ErrInvalidSplit, p)
		}
		if amt.IsNegative() {
			return nil, fmt.Errorf("%w: negative amount %s for %q", ErrInvalidSplit, amt, p)
		}
		shares[p] = amt
		sum = sum.Add(amt)
	}
	if sum != total {
		return nil, fmt.Errorf("%w: amounts sum to %s, expense total is %s", ErrInvalidSplit, sum, total)
	}
	return shares, nil
}

func splitByPercent(total money.Money, basis map[string]int64, participants []string) (map[string]money.Money, error) {
	if len(basis) != len(participants) {
		return nil, fmt.Errorf("%w: %d percentages for %d participants", ErrInvalidSplit, len(basis), len(participants))
	}
	shares := make(map[string]money.Money, len(participants))
	var sum money.Money
	for _, p := range participants {
		bp, ok := basis[p]
		if !ok {
			return nil, fmt.Errorf("%w: no percentage for participant %q", ErrInvalidSplit, p)
		}
		if bp < 0 {
			return nil, fmt.Errorf("%w: negative percentage for %q", ErrInvalidSplit, p)
		}
		share, err := total.Percent(bp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
		}
		shares[p] = share
		sum = sum.Add(share)
	}
	// The truncated shares undershoot the total by at most one minor
	// unit per participant when the percentages really sum to 100%.
	// A larger residue means the percentages themselves don't add up.
	residue := total.Sub(sum)
	if residue.IsNegative() || residue.Units() > int64(len(participants)) {
		return nil, fmt.Errorf("%w: percentages do not sum to 100%% (residue %s)", ErrInvalidSplit, residue)
	}
	last := participants[len(participants)-1]
	shares[last] = shares[last].Add(residue)
	return shares, nil
}
