package models

import "github.com/splitledger/splitledger/internal/money"

// Debt is one directed obligation arising from one expense: the
// participant owes the payer their share. Multiple debts can exist
// between the same pair across different expenses. Expense edits delete
// and recreate debts rather than mutate them. Settlement never changes
// what is owed: a fully consumed debt flips the settled flag, and a
// partially consumed one is split — the settled portion becomes its own
// settled record while the debt keeps its ID with the remainder.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string

	// ExpenseID is the expense this debt originated from.
	ExpenseID string

	// GroupID is the group the debt is scoped to.
	GroupID string

	// OwedByID is the participant who owes.
	OwedByID string

	// OwedToID is the payer who is owed.
	OwedToID string

	// Amount is the owed amount. Always positive.
	Amount money.Money

	// Settled marks the debt as paid. Settled debts no longer count
	// toward net balances.
	Settled bool

	// CreatedAt is the Unix timestamp when the debt was created.
	// Settlement consumes debts oldest-first.
	CreatedAt int64
}

// Transfer is one point-to-point payment in the simplified view of a
// group's debts. Transfers are derived from the unsettled debts and
// never persisted; settling one marks underlying debts as settled
// instead.
type Transfer struct {
	// FromID is the debtor making the payment.
	FromID string

	// ToID is the creditor receiving it.
	ToID string

	// Amount is the payment amount. Always positive.
	Amount money.Money
}
