// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// ErrNotFound is returned when a referenced user, group, expense, or
// debt does not exist.
var ErrNotFound = errors.New("not found")

// DebtSplit partitions one debt into a settled portion and an unsettled
// remainder. Settled and Remainder always sum to the debt's amount, so
// applying a split never changes the net obligation.
type DebtSplit struct {
	DebtID    string
	Settled   money.Money
	Remainder money.Money
}

// SettlementPlan describes one atomic settlement: the debts to mark
// settled in full, plus the boundary debts to split. Stores apply the
// whole plan or none of it.
type SettlementPlan struct {
	SettleIDs []string
	Splits    []DebtSplit
}

// Store defines the persistence interface of the ledger. Multi-row
// writes (an expense with its shares and debts, a settlement plan) are
// atomic: they fully commit or leave state unchanged. This abstraction
// keeps the ledger independent of the storage backend.
type Store interface {
	// CreateUser persists a new user. Fails if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user, or ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateGroup persists a group and its initial members, assigning
	// an ID if unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members in insertion order,
	// or ErrNotFound.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// AddGroupMembers appends users to a group, skipping existing ones.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// ListGroupsForUser returns the groups a user belongs to.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// CreateExpense persists an expense, its shares, and its debts in
	// one transaction, assigning IDs as needed.
	CreateExpense(ctx context.Context, expense *models.Expense, debts []*models.Debt) error

	// GetExpense retrieves an expense with its shares, or ErrNotFound.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ReplaceExpense deletes the expense's old shares and debts and
	// writes the new ones in a single transaction. The expense keeps
	// its identity.
	ReplaceExpense(ctx context.Context, expense *models.Expense, debts []*models.Debt) error

	// DeleteExpense removes an expense together with its shares and
	// debts.
	DeleteExpense(ctx context.Context, id string) error

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// GetDebt retrieves a debt, or ErrNotFound.
	GetDebt(ctx context.Context, id string) (*models.Debt, error)

	// UnsettledDebts returns every unsettled debt in a group, oldest
	// first.
	UnsettledDebts(ctx context.Context, groupID string) ([]*models.Debt, error)

	// SettleDebt marks an unsettled debt as settled. ErrNotFound if the
	// debt does not exist or is already settled.
	SettleDebt(ctx context.Context, id string) error

	// ApplySettlement applies a settlement plan atomically. A split
	// shrinks the original debt to its remainder, keeping its ID and
	// age, and records the settled portion as a new settled debt. The
	// created settled-portion debts are returned.
	ApplySettlement(ctx context.Context, plan *SettlementPlan) ([]*models.Debt, error)

	// Close releases any resources held by the store.
	Close() error
}
