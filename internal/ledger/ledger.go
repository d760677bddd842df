// Package ledger implements the group-debt ledger: recording expenses
// as pairwise debts, deriving net balances, simplifying them into a
// minimal transfer set, and settling debts or transfers.
//
// All mutations for a group are serialized by a per-group mutex, so
// balances and simplified views always read a consistent snapshot.
// Multi-row writes happen inside a single storage transaction; the
// ledger never partially commits.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

var (
	// ErrDebtSettled is returned when settling a debt that is already
	// settled.
	ErrDebtSettled = errors.New("debt already settled")

	// ErrInvalidSettlement is returned when a transfer cannot be
	// realized against the group's unsettled debts.
	ErrInvalidSettlement = errors.New("invalid settlement")
)

// Ledger coordinates debt bookkeeping on top of a storage.Store.
type Ledger struct {
	store storage.Store

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

// New creates a Ledger backed by the given store.
func New(store storage.Store) *Ledger {
	return &Ledger{
		store:  store,
		groups: make(map[string]*sync.Mutex),
	}
}

// groupLock returns the mutex serializing mutations for one group.
func (l *Ledger) groupLock(groupID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.groups[groupID]
	if !ok {
		lock = &sync.Mutex{}
		l.groups[groupID] = lock
	}
	return lock
}

// RecordExpense validates and persists a shared expense, creating one
// unsettled debt per non-payer participant with a positive share. A
// participant who is also the payer owes nothing. The expense, its
// shares, and its debts commit atomically; the created debts are
// returned.
func (l *Ledger) RecordExpense(ctx context.Context, expense *models.Expense) ([]*models.Debt, error) {
	if err := l.validateExpense(ctx, expense); err != nil {
		return nil, err
	}
	debts := debtsForExpense(expense)

	lock := l.groupLock(expense.GroupID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.store.CreateExpense(ctx, expense, debts); err != nil {
		return nil, fmt.Errorf("record expense: %w", err)
	}
	return debts, nil
}

// ReplaceExpense applies an edit as delete-then-recreate: the expense's
// old shares and debts are removed and new ones written from the new
// split, all in one transaction. Debt amounts are never mutated in
// place.
func (l *Ledger) ReplaceExpense(ctx context.Context, expense *models.Expense) ([]*models.Debt, error) {
	if err := l.validateExpense(ctx, expense); err != nil {
		return nil, err
	}
	debts := debtsForExpense(expense)

	lock := l.groupLock(expense.GroupID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.store.ReplaceExpense(ctx, expense, debts); err != nil {
		return nil, fmt.Errorf("replace expense: %w", err)
	}
	return debts, nil
}

// RemoveExpense deletes an expense together with all debts tied to it.
func (l *Ledger) RemoveExpense(ctx context.Context, expenseID string) error {
	expense, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	lock := l.groupLock(expense.GroupID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("remove expense: %w", err)
	}
	return nil
}

// NetBalances derives the signed balance of every group member from the
// unsettled debts: owed-to-them minus owed-by-them. Members without
// debts appear with a zero balance. The balances of a group always sum
// to zero; a violation is reported as ErrUnbalancedLedger.
func (l *Ledger) NetBalances(ctx context.Context, groupID string) (map[string]money.Money, error) {
	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	debts, err := l.store.UnsettledDebts(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return netFromDebts(groupID, group, debts)
}

// Simplify recomputes the transfer set that zeroes the group's current
// net balances. Every transfer is routable over the group's unsettled
// debts, so settling them in the returned order via SettleTransfer
// settles the whole group. The result is deterministic: unchanged debts
// yield an identical transfer list.
func (l *Ledger) Simplify(ctx context.Context, groupID string) ([]models.Transfer, error) {
	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	debts, err := l.store.UnsettledDebts(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := netFromDebts(groupID, group, debts); err != nil {
		return nil, err
	}
	return calculator.Simplify(debts)
}

// Settle marks one debt as settled.
func (l *Ledger) Settle(ctx context.Context, debtID string) error {
	debt, err := l.store.GetDebt(ctx, debtID)
	if err != nil {
		return err
	}

	lock := l.groupLock(debt.GroupID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent settle may have won between
	// the first read and acquiring the lock.
	debt, err = l.store.GetDebt(ctx, debtID)
	if err != nil {
		return err
	}
	if debt.Settled {
		return fmt.Errorf("debt %s: %w", debtID, ErrDebtSettled)
	}

	if err := l.store.SettleDebt(ctx, debtID); err != nil {
		return fmt.Errorf("settle debt: %w", err)
	}
	return nil
}

// netFromDebts folds unsettled debts into a signed balance per group
// member. Conservation holds by construction; verifying it here catches
// corrupted storage before it reaches the simplifier.
func netFromDebts(groupID string, group *models.Group, debts []*models.Debt) (map[string]money.Money, error) {
	balances := make(map[string]money.Money, len(group.Members))
	for _, m := range group.Members {
		balances[m] = 0
	}
	for _, d := range debts {
		balances[d.OwedByID] = balances[d.OwedByID].Sub(d.Amount)
		balances[d.OwedToID] = balances[d.OwedToID].Add(d.Amount)
	}
	var total money.Money
	for _, b := range balances {
		total = total.Add(b)
	}
	if !total.IsZero() {
		return nil, fmt.Errorf("group %s: %w: balances sum to %s",
			groupID, calculator.ErrUnbalancedLedger, total)
	}
	return balances, nil
}

// validateExpense checks amount, membership, and share reconciliation.
func (l *Ledger) validateExpense(ctx context.Context, expense *models.Expense) error {
	if !expense.Amount.IsPositive() {
		return fmt.Errorf("%w: expense amount %s must be positive",
			calculator.ErrInvalidSplit, expense.Amount)
	}
	group, err := l.store.GetGroup(ctx, expense.GroupID)
	if err != nil {
		return err
	}
	if !group.HasMember(expense.PayerID) {
		return fmt.Errorf("%w: payer %s is not a member of group %s",
			calculator.ErrInvalidSplit, expense.PayerID, group.ID)
	}
	for _, s := range expense.Shares {
		if s.Amount.IsNegative() {
			return fmt.Errorf("%w: negative share for %s",
				calculator.ErrInvalidSplit, s.UserID)
		}
		if !group.HasMember(s.UserID) {
			return fmt.Errorf("%w: participant %s is not a member of group %s",
				calculator.ErrInvalidSplit, s.UserID, group.ID)
		}
	}
	if got := expense.ShareTotal(); got != expense.Amount {
		return fmt.Errorf("%w: shares sum to %s, expense amount is %s",
			calculator.ErrInvalidSplit, got, expense.Amount)
	}
	return nil
}

// debtsForExpense turns shares into debts owed to the payer. Zero
// shares and the payer's own share produce no debt.
func debtsForExpense(expense *models.Expense) []*models.Debt {
	now := time.Now().Unix()
	var debts []*models.Debt
	for _, share := range expense.Shares {
		if share.UserID == expense.PayerID || !share.Amount.IsPositive() {
			continue
		}
		debts = append(debts, &models.Debt{
			ExpenseID: expense.ID,
			GroupID:   expense.GroupID,
			OwedByID:  share.UserID,
			OwedToID:  expense.PayerID,
			Amount:    share.Amount,
			Settled:   false,
			CreatedAt: now,
		})
	}
	return debts
}
