package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

const debtColumns = "id, expense_id, group_id, owed_by, owed_to, amount, settled, created_at"

func scanDebt(row interface{ Scan(...any) error }) (*models.Debt, error) {
	debt := &models.Debt{}
	var units int64
	err := row.Scan(&debt.ID, &debt.ExpenseID, &debt.GroupID, &debt.OwedByID,
		&debt.OwedToID, &units, &debt.Settled, &debt.CreatedAt)
	if err != nil {
		return nil, err
	}
	debt.Amount = money.FromUnits(units)
	return debt, nil
}

// GetDebt retrieves a debt by ID.
func (s *Store) GetDebt(ctx context.Context, id string) (*models.Debt, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE id = ?", id)
	debt, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debt %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

// UnsettledDebts returns a group's unsettled debts, oldest first.
// Ties on created_at break by debt ID so the order is stable.
func (s *Store) UnsettledDebts(ctx context.Context, groupID string) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE group_id = ? AND settled = 0 ORDER BY created_at, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

// SettleDebt marks a single unsettled debt as settled.
func (s *Store) SettleDebt(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE debts SET settled = 1 WHERE id = ? AND settled = 0", id)
	if err != nil {
		return fmt.Errorf("failed to settle debt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unsettled debt %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ApplySettlement applies a settlement plan in one transaction: listed
// debts are marked settled, and each split carves the settled portion
// out as a new settled record while the boundary debt itself shrinks to
// the remainder. The remainder keeps the original row — same ID, same
// created_at — so the ordering of the group's unsettled debts is
// unchanged by a split. The created settled-portion debts are returned.
func (s *Store) ApplySettlement(ctx context.Context, plan *storage.SettlementPlan) ([]*models.Debt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range plan.SettleIDs {
		res, err := tx.ExecContext(ctx,
			"UPDATE debts SET settled = 1 WHERE id = ? AND settled = 0", id)
		if err != nil {
			return nil, fmt.Errorf("failed to settle debt: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("unsettled debt %s: %w", id, storage.ErrNotFound)
		}
	}

	var portions []*models.Debt
	for _, split := range plan.Splits {
		row := tx.QueryRowContext(ctx,
			"SELECT "+debtColumns+" FROM debts WHERE id = ? AND settled = 0", split.DebtID)
		debt, err := scanDebt(row)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("unsettled debt %s: %w", split.DebtID, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get debt: %w", err)
		}
		if split.Settled.Add(split.Remainder) != debt.Amount {
			return nil, fmt.Errorf("split of debt %s does not preserve its amount", split.DebtID)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE debts SET amount = ? WHERE id = ?",
			split.Remainder.Units(), split.DebtID)
		if err != nil {
			return nil, fmt.Errorf("failed to shrink split debt: %w", err)
		}

		portion := &models.Debt{
			ID:        uuid.New().String(),
			ExpenseID: debt.ExpenseID,
			GroupID:   debt.GroupID,
			OwedByID:  debt.OwedByID,
			OwedToID:  debt.OwedToID,
			Amount:    split.Settled,
			Settled:   true,
			CreatedAt: debt.CreatedAt,
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO debts (id, expense_id, group_id, owed_by, owed_to, amount, settled, created_at) VALUES (?, ?, ?, ?, ?, ?, 1, ?)",
			portion.ID, portion.ExpenseID, portion.GroupID,
			portion.OwedByID, portion.OwedToID,
			portion.Amount.Units(), portion.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert settled portion: %w", err)
		}
		portions = append(portions, portion)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return portions, nil
}
