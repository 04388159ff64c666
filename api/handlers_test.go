/*
handlers_test.go - HTTP-level tests for the escrow ledger API

Tests for:
- Caller identity header enforcement
- The full escrow lifecycle over HTTP (init, claim, reject, refund)
- Payroll creation and execution
- Domain error to HTTP status mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/warp/escrow-ledger/directory"
	"github.com/warp/escrow-ledger/ledger"
	"github.com/warp/escrow-ledger/store/sqlite"
)

var apiTestClock = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func setupTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := ledger.NewService(store, nil)
	svc.SetClock(func() time.Time { return apiTestClock })

	dir := directory.New(store)
	dir.SetClock(func() time.Time { return apiTestClock })

	handler := NewHandler(svc, dir)
	return NewRouter(handler, []string{"http://localhost:5173"})
}

// doJSON issues a request with an optional caller header and JSON body,
// returning the recorded response.
func doJSON(t *testing.T, router http.Handler, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// claimCode recomputes the verification code the service derived at the
// pinned clock.
func claimCode(sender, receiver string) string {
	return ledger.GenerateCode(ledger.AccountID(sender), ledger.AccountID(receiver), apiTestClock)
}

// =============================================================================
// CALLER IDENTITY TESTS
// =============================================================================

func TestInitTransfer_MissingCallerHeader(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", "", InitTransferRequest{
		Receiver: "bob", Amount: 100, Asset: "stable", TxKey: "tx-1",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// ACCOUNT TESTS
// =============================================================================

func TestRegisterAndGetAccount(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts", "alice", RegisterAccountRequest{
		ID: "alice", Name: "Alice Liddell", Handle: "alice@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/alice", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	acct := decode[AccountDTO](t, rec)
	if acct.Name != "Alice Liddell" {
		t.Errorf("Expected name Alice Liddell, got %q", acct.Name)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/ghost", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown account, got %d", rec.Code)
	}
}

func TestRegisterAccount_DuplicateIsConflict(t *testing.T) {
	router := setupTestRouter(t)

	req := RegisterAccountRequest{ID: "alice", Name: "Alice"}
	if rec := doJSON(t, router, http.MethodPost, "/api/accounts", "alice", req); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/accounts", "alice", req); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate account, got %d", rec.Code)
	}
}

// =============================================================================
// ESCROW LIFECYCLE TESTS
// =============================================================================

func TestTransferLifecycle_Claim(t *testing.T) {
	// GIVEN: Alice escrowed 1500000 stable for Bob
	// WHEN: Bob claims with the correct code
	// THEN: The transfer ends Claimed and the pool drains back to zero

	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", "alice", InitTransferRequest{
		Receiver: "bob", Amount: 1500000, Asset: "stable", TxKey: "tx-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[TransferDTO](t, rec)
	if created.Status != "active" {
		t.Errorf("Expected status active, got %q", created.Status)
	}
	if created.DisplayAmount != "1.5" {
		t.Errorf("Expected display amount 1.5, got %q", created.DisplayAmount)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/transfers/tx-1/claim", "bob", ClaimRequest{
		VerificationCode: claimCode("alice", "bob"), TxKey: "fin-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	claimed := decode[TransferDTO](t, rec)
	if claimed.Status != "claimed" {
		t.Errorf("Expected status claimed, got %q", claimed.Status)
	}
	if claimed.FinalizedBy != "fin-1" {
		t.Errorf("Expected finalizing key fin-1, got %q", claimed.FinalizedBy)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/pool", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	for _, b := range decode[[]PoolBalanceDTO](t, rec) {
		if b.Balance != 0 {
			t.Errorf("Expected drained pool, %s holds %d", b.Asset, b.Balance)
		}
	}
}

func TestTransferLifecycle_RejectThenRefund(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", "alice", InitTransferRequest{
		Receiver: "bob", Amount: 100, Asset: "stable", TxKey: "tx-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/transfers/tx-1/reject", "bob", ClaimRequest{
		VerificationCode: claimCode("alice", "bob"), TxKey: "fin-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on reject, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/transfers/tx-1/refund", "alice", RefundRequest{TxKey: "fin-2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on refund, got %d: %s", rec.Code, rec.Body.String())
	}
	refunded := decode[TransferDTO](t, rec)
	if refunded.Status != "refunded" {
		t.Errorf("Expected status refunded, got %q", refunded.Status)
	}
}

func TestClaim_ErrorStatuses(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", "alice", InitTransferRequest{
		Receiver: "bob", Amount: 100, Asset: "stable", TxKey: "tx-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	cases := []struct {
		name   string
		path   string
		caller string
		body   ClaimRequest
		want   int
	}{
		{"unknown key", "/api/transfers/missing/claim", "bob", ClaimRequest{VerificationCode: claimCode("alice", "bob"), TxKey: "fin-1"}, http.StatusNotFound},
		{"wrong caller", "/api/transfers/tx-1/claim", "carol", ClaimRequest{VerificationCode: claimCode("alice", "bob"), TxKey: "fin-1"}, http.StatusForbidden},
		{"wrong code", "/api/transfers/tx-1/claim", "bob", ClaimRequest{VerificationCode: "000000000000", TxKey: "fin-1"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodPost, tc.path, tc.caller, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestInitTransfer_DuplicateKeyIsConflict(t *testing.T) {
	router := setupTestRouter(t)

	req := InitTransferRequest{Receiver: "bob", Amount: 100, Asset: "stable", TxKey: "tx-1"}
	if rec := doJSON(t, router, http.MethodPost, "/api/transfers", "alice", req); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/transfers", "alice", req); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate key, got %d", rec.Code)
	}
}

func TestSendDirect_NoPoolEffect(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/transfers/direct", "alice", InitTransferRequest{
		Receiver: "bob", Amount: 100, Asset: "stable", TxKey: "tx-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sent := decode[TransferDTO](t, rec)
	if sent.Status != "completed" {
		t.Errorf("Expected status completed, got %q", sent.Status)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/pool", "", nil)
	for _, b := range decode[[]PoolBalanceDTO](t, rec) {
		if b.Balance != 0 {
			t.Errorf("Expected empty pool, %s holds %d", b.Asset, b.Balance)
		}
	}
}

func TestGetAccountTransfers(t *testing.T) {
	router := setupTestRouter(t)

	for i, receiver := range []string{"bob", "carol"} {
		rec := doJSON(t, router, http.MethodPost, "/api/transfers", "alice", InitTransferRequest{
			Receiver: receiver, Amount: 100, Asset: "stable", TxKey: ledgerKey(i),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/accounts/alice/transfers", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	transfers := decode[[]TransferDTO](t, rec)
	if len(transfers) != 2 {
		t.Errorf("Expected 2 transfers for alice, got %d", len(transfers))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/bob/transfers", "", nil)
	transfers = decode[[]TransferDTO](t, rec)
	if len(transfers) != 1 {
		t.Errorf("Expected 1 transfer for bob, got %d", len(transfers))
	}
}

func ledgerKey(i int) string { return fmt.Sprintf("tx-%d", i+1) }

// =============================================================================
// PAYROLL TESTS
// =============================================================================

func TestPayrollLifecycle(t *testing.T) {
	// GIVEN: Acme defines a two-recipient payroll
	// WHEN: Acme executes it with surplus funding
	// THEN: The bulk record carries Active recipients and the pool absorbs
	//       the full funding amount

	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/payrolls", "acme", CreatePayrollRequest{
		Name:       "june-salaries",
		Recipients: []string{"bob", "carol"},
		Amounts:    []uint64{100, 200},
		Asset:      "stable",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[PayrollDTO](t, rec)
	if created.Total != 300 {
		t.Errorf("Expected total 300, got %d", created.Total)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/payrolls/june-salaries/execute", "acme", ExecutePayrollRequest{
		Funding: 500, Asset: "stable", TxKey: "bulk-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	bulk := decode[BulkTransferDTO](t, rec)
	if bulk.TotalAmount != 300 {
		t.Errorf("Expected total 300, got %d", bulk.TotalAmount)
	}
	if len(bulk.Recipients) != 2 {
		t.Fatalf("Expected 2 recipients, got %d", len(bulk.Recipients))
	}
	for _, r := range bulk.Recipients {
		if r.Status != "active" {
			t.Errorf("Expected recipient %s active, got %q", r.Address, r.Status)
		}
	}

	rec = doJSON(t, router, http.MethodGet, "/api/bulk-transfers/bulk-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/pool", "", nil)
	for _, b := range decode[[]PoolBalanceDTO](t, rec) {
		if b.Asset == "stable" && b.Balance != 500 {
			t.Errorf("Expected stable pool 500, got %d", b.Balance)
		}
	}
}

func TestExecutePayroll_ErrorStatuses(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/payrolls", "acme", CreatePayrollRequest{
		Name:       "june-salaries",
		Recipients: []string{"bob"},
		Amounts:    []uint64{100},
		Asset:      "stable",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	cases := []struct {
		name   string
		path   string
		caller string
		body   ExecutePayrollRequest
		want   int
	}{
		{"unknown payroll", "/api/payrolls/missing/execute", "acme", ExecutePayrollRequest{Funding: 100, Asset: "stable", TxKey: "bulk-1"}, http.StatusNotFound},
		{"not owner", "/api/payrolls/june-salaries/execute", "mallory", ExecutePayrollRequest{Funding: 100, Asset: "stable", TxKey: "bulk-1"}, http.StatusForbidden},
		{"asset mismatch", "/api/payrolls/june-salaries/execute", "acme", ExecutePayrollRequest{Funding: 100, Asset: "primary", TxKey: "bulk-1"}, http.StatusBadRequest},
		{"underfunded", "/api/payrolls/june-salaries/execute", "acme", ExecutePayrollRequest{Funding: 99, Asset: "stable", TxKey: "bulk-1"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodPost, tc.path, tc.caller, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestListPayrolls_OwnerScoped(t *testing.T) {
	router := setupTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/payrolls", "acme", CreatePayrollRequest{
		Name: "june-salaries", Recipients: []string{"bob"}, Amounts: []uint64{100}, Asset: "stable",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/payrolls", "other-corp", CreatePayrollRequest{
		Name: "other-team", Recipients: []string{"eve"}, Amounts: []uint64{50}, Asset: "stable",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/payrolls", "acme", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	payrolls := decode[[]PayrollDTO](t, rec)
	if len(payrolls) != 1 || payrolls[0].Name != "june-salaries" {
		t.Errorf("Expected only acme's payroll, got %+v", payrolls)
	}
}
