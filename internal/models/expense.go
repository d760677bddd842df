package models

import (
	"fmt"

	"github.com/splitledger/splitledger/internal/money"
)

// Category classifies an expense. The set is closed; ParseCategory
// rejects anything else.
type Category string

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryUtilities      Category = "utilities"
	CategoryHealth         Category = "health"
	CategoryTravel         Category = "travel"
	CategoryOther          Category = "other"
)

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryFood, CategoryTransportation, CategoryEntertainment,
		CategoryShopping, CategoryUtilities, CategoryHealth,
		CategoryTravel, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Share is one participant's owed portion of an expense. The shares of
// an expense always sum exactly to the expense amount.
type Share struct {
	// UserID identifies the participant.
	UserID string

	// Amount is what the participant owes for this expense.
	Amount money.Money
}

// Expense is a payment made by one user on behalf of a set of
// participants. Saving an expense creates one debt per non-payer
// participant; editing it replaces all of its shares and debts.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// PayerID is the user who paid the full amount.
	PayerID string

	// Name is the human-readable description.
	Name string

	// Category classifies the expense.
	Category Category

	// Amount is the total paid. Always positive.
	Amount money.Money

	// Date is the Unix timestamp of the expense.
	Date int64

	// Shares are the per-participant owed amounts, in participant order.
	Shares []Share
}

// ShareTotal sums the expense's shares.
func (e *Expense) ShareTotal() money.Money {
	var total money.Money
	for _, s := range e.Shares {
		total = total.Add(s.Amount)
	}
	return total
}
