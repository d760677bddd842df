// Package service exposes the ledger over a JSON HTTP API. Handlers
// decode requests, enforce group membership, and delegate to the
// ledger and stores; amounts cross the wire as decimal strings.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

var errForbidden = errors.New("you must be a member of this group")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses. An unbalanced ledger
// means corrupted state, so it logs at error level.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, calculator.ErrInvalidSplit),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, ledger.ErrDebtSettled),
		errors.Is(err, ledger.ErrInvalidSettlement):
		status = http.StatusConflict
	case errors.Is(err, calculator.ErrUnbalancedLedger):
		slog.Error("ledger invariant violated", "error", err)
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", calculator.ErrInvalidSplit, err)
	}
	return nil
}

// requireMember loads the group and checks that the authenticated user
// belongs to it.
func requireMember(r *http.Request, store storage.Store, groupID string) (*models.Group, error) {
	group, err := store.GetGroup(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(middleware.GetUserID(r.Context())) {
		return nil, errForbidden
	}
	return group, nil
}
