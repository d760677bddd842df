package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/storage/sqlite"
)

// testEnv is a full HTTP stack over a temp SQLite store.
type testEnv struct {
	t      *testing.T
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	logger := slog.Default()

	mux := http.NewServeMux()
	RegisterRoutes(mux,
		NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, logger),
		NewGroupService(store, logger),
		NewLedgerService(ledger.New(store), store, logger),
		jwtManager,
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testEnv{t: t, server: server}
}

// do sends a JSON request and decodes the response body into out (when
// out is non-nil), returning the status code.
func (e *testEnv) do(method, path, token string, body, out any) int {
	e.t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("failed to marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, buf)
	if err != nil {
		e.t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			e.t.Fatalf("%s %s: failed to decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// registerUser registers a user and returns its ID and token.
func (e *testEnv) registerUser(name string) (string, string) {
	e.t.Helper()
	var resp sessionResponse
	status := e.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    name + "@example.com",
		"name":     name,
		"password": "correct horse",
	}, &resp)
	if status != http.StatusCreated {
		e.t.Fatalf("register %s: status %d", name, status)
	}
	return resp.User.ID, resp.Token
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	userID, token := env.registerUser("alice")
	if userID == "" || token == "" {
		t.Fatal("expected user ID and token")
	}

	t.Run("duplicate email is rejected", func(t *testing.T) {
		status := env.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email": "alice@example.com", "name": "alice", "password": "correct horse",
		}, nil)
		if status != http.StatusConflict {
			t.Errorf("status = %d, want 409", status)
		}
	})

	t.Run("weak password is rejected", func(t *testing.T) {
		status := env.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email": "bob@example.com", "name": "bob", "password": "short",
		}, nil)
		if status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("login returns a token", func(t *testing.T) {
		var resp sessionResponse
		status := env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": "alice@example.com", "password": "correct horse",
		}, &resp)
		if status != http.StatusOK || resp.Token == "" {
			t.Errorf("status = %d, token = %q", status, resp.Token)
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		status := env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": "alice@example.com", "password": "wrong horse",
		}, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", status)
		}
	})

	t.Run("protected routes need a token", func(t *testing.T) {
		status := env.do(http.MethodGet, "/api/v1/groups", "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", status)
		}
	})
}

func TestPreviewSplit(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser("alice")

	var resp struct {
		Shares []shareResponse `json:"shares"`
	}
	status := env.do(http.MethodPost, "/api/v1/split/preview", token, map[string]any{
		"amount":       "10.00",
		"method":       "percentage",
		"participants": []string{"a", "b", "c"},
		"percents":     map[string]int64{"a": 3333, "b": 3333, "c": 3334},
	}, &resp)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	want := map[string]string{"a": "3.33", "b": "3.33", "c": "3.34"}
	if len(resp.Shares) != len(want) {
		t.Fatalf("shares = %+v, want 3", resp.Shares)
	}
	for _, s := range resp.Shares {
		if s.Amount != want[s.UserID] {
			t.Errorf("share[%s] = %s, want %s", s.UserID, s.Amount, want[s.UserID])
		}
	}
}

func TestExpenseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.registerUser("alice")
	bobID, _ := env.registerUser("bob")
	carolID, carolToken := env.registerUser("carol")
	_, malloryToken := env.registerUser("mallory")

	var group groupResponse
	status := env.do(http.MethodPost, "/api/v1/groups", aliceToken, map[string]any{
		"name":    "trip",
		"members": []string{aliceID, bobID, carolID},
	}, &group)
	if status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}
	if len(group.Members) != 3 {
		t.Fatalf("members = %v, want 3", group.Members)
	}

	t.Run("non-member is forbidden", func(t *testing.T) {
		status := env.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%s/balances", group.ID), malloryToken, nil, nil)
		if status != http.StatusForbidden {
			t.Errorf("status = %d, want 403", status)
		}
	})

	var created expenseWithDebts
	status = env.do(http.MethodPost, "/api/v1/expenses", aliceToken, map[string]any{
		"group_id": group.ID,
		"payer_id": aliceID,
		"name":     "dinner",
		"category": "food",
		"amount":   "30.00",
		"split": map[string]any{
			"method":       "equal",
			"participants": []string{aliceID, bobID, carolID},
		},
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create expense: status %d", status)
	}
	if len(created.Debts) != 2 {
		t.Fatalf("debts = %+v, want 2", created.Debts)
	}

	t.Run("balances reflect the expense", func(t *testing.T) {
		var resp struct {
			Balances map[string]string `json:"balances"`
		}
		status := env.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%s/balances", group.ID), carolToken, nil, &resp)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if resp.Balances[aliceID] != "20.00" || resp.Balances[bobID] != "-10.00" {
			t.Errorf("balances = %v", resp.Balances)
		}
	})

	t.Run("mismatched amount split is rejected", func(t *testing.T) {
		status := env.do(http.MethodPost, "/api/v1/expenses", aliceToken, map[string]any{
			"group_id": group.ID,
			"payer_id": aliceID,
			"name":     "bad",
			"category": "other",
			"amount":   "10.00",
			"split": map[string]any{
				"method":       "amount",
				"participants": []string{aliceID, bobID},
				"amounts":      map[string]string{aliceID: "5.00", bobID: "4.00"},
			},
		}, nil)
		if status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("settling the simplified transfers zeroes the group", func(t *testing.T) {
		var transfers struct {
			Transfers []transferResponse `json:"transfers"`
		}
		status := env.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%s/transfers", group.ID), aliceToken, nil, &transfers)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if len(transfers.Transfers) != 2 {
			t.Fatalf("transfers = %+v, want 2", transfers.Transfers)
		}

		for _, tr := range transfers.Transfers {
			status := env.do(http.MethodPost, fmt.Sprintf("/api/v1/groups/%s/transfers/settle", group.ID), aliceToken, map[string]string{
				"from": tr.From, "to": tr.To, "amount": tr.Amount,
			}, nil)
			if status != http.StatusOK {
				t.Fatalf("settle transfer: status %d", status)
			}
		}

		var resp struct {
			Balances map[string]string `json:"balances"`
		}
		if status := env.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%s/balances", group.ID), aliceToken, nil, &resp); status != http.StatusOK {
			t.Fatalf("balances: status %d", status)
		}
		for userID, b := range resp.Balances {
			if b != "0.00" {
				t.Errorf("balance[%s] = %s, want 0.00", userID, b)
			}
		}
	})

	t.Run("deleting the expense removes its debts", func(t *testing.T) {
		var second expenseWithDebts
		status := env.do(http.MethodPost, "/api/v1/expenses", aliceToken, map[string]any{
			"group_id": group.ID,
			"payer_id": aliceID,
			"name":     "taxi",
			"category": "transportation",
			"amount":   "9.00",
			"split": map[string]any{
				"method":       "equal",
				"participants": []string{aliceID, bobID, carolID},
			},
		}, &second)
		if status != http.StatusCreated {
			t.Fatalf("create expense: status %d", status)
		}

		status = env.do(http.MethodDelete, "/api/v1/expenses/"+second.Expense.ID, aliceToken, nil, nil)
		if status != http.StatusNoContent {
			t.Fatalf("delete expense: status %d", status)
		}

		var resp struct {
			Balances map[string]string `json:"balances"`
		}
		if status := env.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%s/balances", group.ID), aliceToken, nil, &resp); status != http.StatusOK {
			t.Fatalf("balances: status %d", status)
		}
		for userID, b := range resp.Balances {
			if b != "0.00" {
				t.Errorf("balance[%s] = %s, want 0.00", userID, b)
			}
		}
	})

	t.Run("settling a settled debt conflicts", func(t *testing.T) {
		var created expenseWithDebts
		status := env.do(http.MethodPost, "/api/v1/expenses", aliceToken, map[string]any{
			"group_id": group.ID,
			"payer_id": aliceID,
			"name":     "coffee",
			"category": "food",
			"amount":   "4.00",
			"split": map[string]any{
				"method":       "amount",
				"participants": []string{bobID},
				"amounts":      map[string]string{bobID: "4.00"},
			},
		}, &created)
		if status != http.StatusCreated || len(created.Debts) != 1 {
			t.Fatalf("create expense: status %d, debts %+v", status, created.Debts)
		}
		debtID := created.Debts[0].ID

		if status := env.do(http.MethodPost, "/api/v1/debts/"+debtID+"/settle", aliceToken, nil, nil); status != http.StatusOK {
			t.Fatalf("settle debt: status %d", status)
		}
		if status := env.do(http.MethodPost, "/api/v1/debts/"+debtID+"/settle", aliceToken, nil, nil); status != http.StatusConflict {
			t.Errorf("second settle: status %d, want 409", status)
		}
	})
}

func TestUpdateExpense(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.registerUser("alice")
	bobID, _ := env.registerUser("bob")

	var group groupResponse
	if status := env.do(http.MethodPost, "/api/v1/groups", aliceToken, map[string]any{
		"name": "flat", "members": []string{aliceID, bobID},
	}, &group); status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}

	var created expenseWithDebts
	if status := env.do(http.MethodPost, "/api/v1/expenses", aliceToken, map[string]any{
		"group_id": group.ID,
		"payer_id": aliceID,
		"name":     "groceries",
		"category": "food",
		"amount":   "10.00",
		"split": map[string]any{
			"method":       "equal",
			"participants": []string{aliceID, bobID},
		},
	}, &created); status != http.StatusCreated {
		t.Fatalf("create expense: status %d", status)
	}

	// Re-split the same expense entirely onto bob.
	var updated expenseWithDebts
	status := env.do(http.MethodPut, "/api/v1/expenses/"+created.Expense.ID, aliceToken, map[string]any{
		"payer_id": aliceID,
		"name":     "groceries",
		"category": "food",
		"amount":   "10.00",
		"split": map[string]any{
			"method":       "amount",
			"participants": []string{bobID},
			"amounts":      map[string]string{bobID: "10.00"},
		},
	}, &updated)
	if status != http.StatusOK {
		t.Fatalf("update expense: status %d", status)
	}
	if len(updated.Debts) != 1 || updated.Debts[0].Amount != "10.00" {
		t.Fatalf("debts = %+v, want single 10.00 debt", updated.Debts)
	}

	var resp struct {
		Balances map[string]string `json:"balances"`
	}
	if status := env.do(http.MethodGet, fmt.Sprintf("/api/v1/groups/%s/balances", group.ID), aliceToken, nil, &resp); status != http.StatusOK {
		t.Fatalf("balances: status %d", status)
	}
	if resp.Balances[aliceID] != "10.00" || resp.Balances[bobID] != "-10.00" {
		t.Errorf("balances = %v", resp.Balances)
	}
}
