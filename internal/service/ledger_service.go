package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// LedgerService handles expenses, balances, simplification, and
// settlement for a group.
type LedgerService struct {
	ledger *ledger.Ledger
	store  storage.Store
	logger *slog.Logger
}

func NewLedgerService(l *ledger.Ledger, store storage.Store, logger *slog.Logger) *LedgerService {
	return &LedgerService{ledger: l, store: store, logger: logger}
}

// splitSpec is the wire form of a split policy.
type splitSpec struct {
	Method       string            `json:"method"`
	Participants []string          `json:"participants"`
	Amounts      map[string]string `json:"amounts,omitempty"`
	Percents     map[string]int64  `json:"percents,omitempty"`
}

// policy converts the wire form into a SplitPolicy.
func (s splitSpec) policy() (models.SplitPolicy, error) {
	method, err := models.ParseSplitMethod(s.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calculator.ErrInvalidSplit, err)
	}
	switch method {
	case models.SplitEqual:
		return models.EqualSplit{}, nil
	case models.SplitByAmount:
		amounts := make(map[string]money.Money, len(s.Amounts))
		for userID, raw := range s.Amounts {
			amount, err := money.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: amount for %s: %v", calculator.ErrInvalidSplit, userID, err)
			}
			amounts[userID] = amount
		}
		return models.AmountSplit{Amounts: amounts}, nil
	default:
		return models.PercentSplit{Basis: s.Percents}, nil
	}
}

// shares computes the per-participant shares for the given total.
func (s splitSpec) shares(total money.Money) (map[string]money.Money, error) {
	policy, err := s.policy()
	if err != nil {
		return nil, err
	}
	return calculator.Split(total, policy, s.Participants)
}

type shareResponse struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type expenseResponse struct {
	ID       string          `json:"id"`
	GroupID  string          `json:"group_id"`
	PayerID  string          `json:"payer_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Amount   string          `json:"amount"`
	Date     int64           `json:"date"`
	Shares   []shareResponse `json:"shares"`
}

func toExpenseResponse(expense *models.Expense) expenseResponse {
	resp := expenseResponse{
		ID:       expense.ID,
		GroupID:  expense.GroupID,
		PayerID:  expense.PayerID,
		Name:     expense.Name,
		Category: string(expense.Category),
		Amount:   expense.Amount.String(),
		Date:     expense.Date,
		Shares:   make([]shareResponse, 0, len(expense.Shares)),
	}
	for _, s := range expense.Shares {
		resp.Shares = append(resp.Shares, shareResponse{UserID: s.UserID, Amount: s.Amount.String()})
	}
	return resp
}

type debtResponse struct {
	ID        string `json:"id"`
	ExpenseID string `json:"expense_id"`
	GroupID   string `json:"group_id"`
	OwedBy    string `json:"owed_by"`
	OwedTo    string `json:"owed_to"`
	Amount    string `json:"amount"`
	Settled   bool   `json:"settled"`
	CreatedAt int64  `json:"created_at"`
}

func toDebtResponse(d *models.Debt) debtResponse {
	return debtResponse{
		ID:        d.ID,
		ExpenseID: d.ExpenseID,
		GroupID:   d.GroupID,
		OwedBy:    d.OwedByID,
		OwedTo:    d.OwedToID,
		Amount:    d.Amount.String(),
		Settled:   d.Settled,
		CreatedAt: d.CreatedAt,
	}
}

func toDebtResponses(debts []*models.Debt) []debtResponse {
	resp := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		resp = append(resp, toDebtResponse(d))
	}
	return resp
}

type transferResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// PreviewSplit computes shares for a hypothetical expense without
// persisting anything.
func (s *LedgerService) PreviewSplit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
		splitSpec
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	total, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", calculator.ErrInvalidSplit, err))
		return
	}
	shares, err := req.shares(total)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Shares []shareResponse `json:"shares"`
	}{Shares: make([]shareResponse, 0, len(shares))}
	for _, p := range req.Participants {
		resp.Shares = append(resp.Shares, shareResponse{UserID: p, Amount: shares[p].String()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// expenseRequest is the wire form of a new or edited expense.
type expenseRequest struct {
	GroupID  string    `json:"group_id"`
	PayerID  string    `json:"payer_id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Amount   string    `json:"amount"`
	Date     int64     `json:"date,omitempty"`
	Split    splitSpec `json:"split"`
}

// toExpense validates the request and computes its shares.
func (req *expenseRequest) toExpense() (*models.Expense, error) {
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calculator.ErrInvalidSplit, err)
	}
	total, err := money.Parse(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calculator.ErrInvalidSplit, err)
	}
	shares, err := req.Split.shares(total)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:  req.GroupID,
		PayerID:  req.PayerID,
		Name:     req.Name,
		Category: category,
		Amount:   total,
		Date:     req.Date,
	}
	for _, p := range req.Split.Participants {
		expense.Shares = append(expense.Shares, models.Share{UserID: p, Amount: shares[p]})
	}
	return expense, nil
}

type expenseWithDebts struct {
	Expense expenseResponse `json:"expense"`
	Debts   []debtResponse  `json:"debts"`
}

// CreateExpense records an expense and its debts.
func (s *LedgerService) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := requireMember(r, s.store, req.GroupID); err != nil {
		writeError(w, err)
		return
	}

	expense, err := req.toExpense()
	if err != nil {
		writeError(w, err)
		return
	}
	debts, err := s.ledger.RecordExpense(r.Context(), expense)
	if err != nil {
		s.logger.Warn("failed to record expense", "group_id", req.GroupID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("expense recorded",
		"expense_id", expense.ID, "group_id", expense.GroupID,
		"amount", expense.Amount, "debts", len(debts))
	writeJSON(w, http.StatusCreated, expenseWithDebts{
		Expense: toExpenseResponse(expense),
		Debts:   toDebtResponses(debts),
	})
}

// UpdateExpense replaces an expense's split. The expense keeps its
// identity and group; its shares and debts are recreated.
func (s *LedgerService) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := requireMember(r, s.store, existing.GroupID); err != nil {
		writeError(w, err)
		return
	}

	var req expenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.GroupID = existing.GroupID

	expense, err := req.toExpense()
	if err != nil {
		writeError(w, err)
		return
	}
	expense.ID = existing.ID
	if expense.Date == 0 {
		expense.Date = existing.Date
	}

	debts, err := s.ledger.ReplaceExpense(r.Context(), expense)
	if err != nil {
		s.logger.Warn("failed to replace expense", "expense_id", expense.ID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("expense replaced", "expense_id", expense.ID, "debts", len(debts))
	writeJSON(w, http.StatusOK, expenseWithDebts{
		Expense: toExpenseResponse(expense),
		Debts:   toDebtResponses(debts),
	})
}

// DeleteExpense removes an expense and its debts.
func (s *LedgerService) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := r.PathValue("id")
	expense, err := s.store.GetExpense(r.Context(), expenseID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := requireMember(r, s.store, expense.GroupID); err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.RemoveExpense(r.Context(), expenseID); err != nil {
		s.logger.Warn("failed to remove expense", "expense_id", expenseID, "error", err)
		writeError(w, err)
		return
	}
	s.logger.Info("expense removed", "expense_id", expenseID)
	w.WriteHeader(http.StatusNoContent)
}

// ListExpenses returns a group's expenses, newest first.
func (s *LedgerService) ListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, err := requireMember(r, s.store, groupID); err != nil {
		writeError(w, err)
		return
	}

	expenses, err := s.store.ListExpensesByGroup(r.Context(), groupID)
	if err != nil {
		s.logger.Error("failed to list expenses", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	resp := struct {
		Expenses []expenseResponse `json:"expenses"`
	}{Expenses: make([]expenseResponse, 0, len(expenses))}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Balances returns the group's net balances, one entry per member.
func (s *LedgerService) Balances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, err := requireMember(r, s.store, groupID); err != nil {
		writeError(w, err)
		return
	}

	balances, err := s.ledger.NetBalances(r.Context(), groupID)
	if err != nil {
		s.logger.Error("failed to compute balances", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	resp := struct {
		Balances map[string]string `json:"balances"`
	}{Balances: make(map[string]string, len(balances))}
	for userID, b := range balances {
		resp.Balances[userID] = b.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transfers returns the minimal transfer set settling the group.
func (s *LedgerService) Transfers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, err := requireMember(r, s.store, groupID); err != nil {
		writeError(w, err)
		return
	}

	transfers, err := s.ledger.Simplify(r.Context(), groupID)
	if err != nil {
		s.logger.Error("failed to simplify", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	resp := struct {
		Transfers []transferResponse `json:"transfers"`
	}{Transfers: make([]transferResponse, 0, len(transfers))}
	for _, t := range transfers {
		resp.Transfers = append(resp.Transfers, transferResponse{
			From: t.FromID, To: t.ToID, Amount: t.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SettleDebt marks a single debt as settled.
func (s *LedgerService) SettleDebt(w http.ResponseWriter, r *http.Request) {
	debtID := r.PathValue("id")
	debt, err := s.store.GetDebt(r.Context(), debtID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := requireMember(r, s.store, debt.GroupID); err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.Settle(r.Context(), debtID); err != nil {
		writeError(w, err)
		return
	}
	debt.Settled = true

	s.logger.Info("debt settled", "debt_id", debtID, "group_id", debt.GroupID)
	writeJSON(w, http.StatusOK, toDebtResponse(debt))
}

// SettleTransfer settles a simplified transfer against the group's
// unsettled debts and returns the affected debts, including both halves
// of a boundary split.
func (s *LedgerService) SettleTransfer(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, err := requireMember(r, s.store, groupID); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidSettlement, err))
		return
	}

	affected, err := s.ledger.SettleTransfer(r.Context(), groupID, models.Transfer{
		FromID: req.From, ToID: req.To, Amount: amount,
	})
	if err != nil {
		s.logger.Warn("failed to settle transfer",
			"group_id", groupID, "from", req.From, "to", req.To, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("transfer settled",
		"group_id", groupID, "from", req.From, "to", req.To,
		"amount", amount, "debts", len(affected))
	writeJSON(w, http.StatusOK, struct {
		Debts []debtResponse `json:"debts"`
	}{Debts: toDebtResponses(affected)})
}
