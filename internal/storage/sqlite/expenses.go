package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// CreateExpense persists an expense, its shares, and its debts in one
// transaction.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense, debts []*models.Debt) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == 0 {
		expense.Date = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses (id, group_id, payer_id, name, category, amount, date) VALUES (?, ?, ?, ?, ?, ?, ?)",
		expense.ID, expense.GroupID, expense.PayerID, expense.Name,
		string(expense.Category), expense.Amount.Units(), expense.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertSharesAndDebts(ctx, tx, expense, debts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceExpense rewrites an expense's row, shares, and debts in one
// transaction, keeping its identity. Old debts are deleted, never
// edited in place.
func (s *Store) ReplaceExpense(ctx context.Context, expense *models.Expense, debts []*models.Debt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET group_id = ?, payer_id = ?, name = ?, category = ?, amount = ?, date = ? WHERE id = ?",
		expense.GroupID, expense.PayerID, expense.Name,
		string(expense.Category), expense.Amount.Units(), expense.Date, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM shares WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to delete old shares: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM debts WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to delete old debts: %w", err)
	}

	if err := insertSharesAndDebts(ctx, tx, expense, debts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertSharesAndDebts(ctx context.Context, tx *sql.Tx, expense *models.Expense, debts []*models.Debt) error {
	for i, share := range expense.Shares {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO shares (expense_id, user_id, amount, position) VALUES (?, ?, ?, ?)",
			expense.ID, share.UserID, share.Amount.Units(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	for _, debt := range debts {
		if debt.ID == "" {
			debt.ID = uuid.New().String()
		}
		if debt.CreatedAt == 0 {
			debt.CreatedAt = time.Now().Unix()
		}
		debt.ExpenseID = expense.ID
		_, err := tx.ExecContext(ctx,
			"INSERT INTO debts (id, expense_id, group_id, owed_by, owed_to, amount, settled, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			debt.ID, debt.ExpenseID, debt.GroupID, debt.OwedByID, debt.OwedToID,
			debt.Amount.Units(), debt.Settled, debt.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert debt: %w", err)
		}
	}
	return nil
}

// GetExpense retrieves an expense with its shares.
func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	var category string
	var units int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, payer_id, name, category, amount, date FROM expenses WHERE id = ?",
		id,
	).Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Name,
		&category, &units, &expense.Date)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.Category = models.Category(category)
	expense.Amount = money.FromUnits(units)

	shares, err := s.sharesForExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	expense.Shares = shares
	return expense, nil
}

func (s *Store) sharesForExpense(ctx context.Context, expenseID string) ([]models.Share, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, amount FROM shares WHERE expense_id = ? ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		var share models.Share
		var units int64
		if err := rows.Scan(&share.UserID, &units); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		share.Amount = money.FromUnits(units)
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

// DeleteExpense removes an expense; shares and debts cascade.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListExpensesByGroup returns a group's expenses, newest first.
func (s *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM expenses WHERE group_id = ? ORDER BY date DESC, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	expenses := make([]*models.Expense, 0, len(ids))
	for _, id := range ids {
		expense, err := s.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, nil
}
