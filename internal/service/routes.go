package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/middleware"
)

// RegisterRoutes mounts all services under /api/v1. Auth routes,
// /healthz, and /metrics are public; everything else requires a valid
// Bearer token.
func RegisterRoutes(mux *http.ServeMux, authSvc *AuthService, groupSvc *GroupService, ledgerSvc *LedgerService, jwtManager *auth.JWTManager) {
	mux.HandleFunc("POST /api/v1/auth/register", authSvc.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authSvc.Login)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireAuth := middleware.RequireAuth(jwtManager)
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	protected("POST /api/v1/groups", groupSvc.CreateGroup)
	protected("GET /api/v1/groups", groupSvc.ListGroups)
	protected("GET /api/v1/groups/{id}", groupSvc.GetGroup)
	protected("POST /api/v1/groups/{id}/members", groupSvc.AddMembers)

	protected("POST /api/v1/split/preview", ledgerSvc.PreviewSplit)

	protected("POST /api/v1/expenses", ledgerSvc.CreateExpense)
	protected("PUT /api/v1/expenses/{id}", ledgerSvc.UpdateExpense)
	protected("DELETE /api/v1/expenses/{id}", ledgerSvc.DeleteExpense)
	protected("GET /api/v1/groups/{id}/expenses", ledgerSvc.ListExpenses)

	protected("GET /api/v1/groups/{id}/balances", ledgerSvc.Balances)
	protected("GET /api/v1/groups/{id}/transfers", ledgerSvc.Transfers)

	protected("POST /api/v1/debts/{id}/settle", ledgerSvc.SettleDebt)
	protected("POST /api/v1/groups/{id}/transfers/settle", ledgerSvc.SettleTransfer)
}
