// Package models defines the domain types of the group-debt ledger.
//
// The persisted entities are User, Group, Expense (with its Shares), and
// Debt. NetBalance vectors and Transfers are derived from the set of
// unsettled debts and are never stored; they are recomputed on demand so
// they cannot go stale independently of the debts.
package models
