package models

import (
	"fmt"

	"github.com/splitledger/splitledger/internal/money"
)

// SplitMethod names the way an expense is divided among participants.
type SplitMethod string

const (
	SplitEqual     SplitMethod = "equal"
	SplitByAmount  SplitMethod = "amount"
	SplitByPercent SplitMethod = "percentage"
)

// ParseSplitMethod validates a split method string.
func ParseSplitMethod(s string) (SplitMethod, error) {
	switch m := SplitMethod(s); m {
	case SplitEqual, SplitByAmount, SplitByPercent:
		return m, nil
	}
	return "", fmt.Errorf("unknown split method %q", s)
}

// SplitPolicy is the closed set of ways to divide an expense total.
// Exactly three implementations exist: EqualSplit, AmountSplit, and
// PercentSplit. The split engine handles them exhaustively.
type SplitPolicy interface {
	Method() SplitMethod
}

// EqualSplit divides the total evenly, assigning the rounding remainder
// to the first participants in order.
type EqualSplit struct{}

func (EqualSplit) Method() SplitMethod { return SplitEqual }

// AmountSplit assigns an explicit amount to every participant. The
// amounts must sum exactly to the expense total.
type AmountSplit struct {
	Amounts map[string]money.Money
}

func (AmountSplit) Method() SplitMethod { return SplitByAmount }

// PercentSplit assigns each participant a share in basis points
// (100 bp = 1%, 10000 bp = 100%). Rounding residue goes to the last
// participant.
type PercentSplit struct {
	Basis map[string]int64
}

func (PercentSplit) Method() SplitMethod { return SplitByPercent }
