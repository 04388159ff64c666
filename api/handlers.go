/*
handlers.go - HTTP API handlers for the escrow ledger

PURPOSE:
  Exposes the ledger service via REST. Handles HTTP request/response,
  JSON serialization, and delegates to the domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                 List accounts
    POST   /api/accounts                 Register account
    GET    /api/accounts/{id}            Resolve account
    GET    /api/accounts/{id}/transfers  Transfer history

  Transfers:
    POST   /api/transfers                Initiate escrowed transfer
    POST   /api/transfers/direct         Record direct (non-escrow) send
    GET    /api/transfers/{key}          Transfer projection
    POST   /api/transfers/{key}/claim    Claim with verification code
    POST   /api/transfers/{key}/reject   Reject (funds stay escrowed)
    POST   /api/transfers/{key}/refund   Refund a rejected transfer

  Payrolls:
    GET    /api/payrolls                 List caller's payrolls
    POST   /api/payrolls                 Create payroll definition
    GET    /api/payrolls/{name}          Payroll projection
    POST   /api/payrolls/{name}/execute  Execute against the pool
    GET    /api/bulk-transfers/{key}     Bulk transfer projection

  Pool:
    GET    /api/pool                     Pooled balances per asset kind

CALLER IDENTITY:
  The acting account comes from the X-Caller-Account header. The core
  trusts it: authentication happens upstream, and the ledger only
  compares it against stored sender/receiver/owner identities.

ERROR HANDLING:
  Errors are returned as JSON with the appropriate HTTP status:
  - 400: Invalid input, amounts, parameters, codes, shortfalls
  - 403: Caller is not the expected sender/receiver/owner
  - 404: Unknown key or name
  - 409: Duplicate key or payroll name
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/escrow-ledger/directory"
	"github.com/warp/escrow-ledger/ledger"
)

// callerHeader carries the externally-authenticated acting account.
const callerHeader = "X-Caller-Account"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *ledger.Service
	Directory *directory.Directory
}

// NewHandler creates a new handler over the ledger service and directory.
func NewHandler(svc *ledger.Service, dir *directory.Directory) *Handler {
	return &Handler{Ledger: svc, Directory: dir}
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (ledger.AccountID, bool) {
	caller := r.Header.Get(callerHeader)
	if caller == "" {
		writeError(w, http.StatusBadRequest, "Missing "+callerHeader+" header", nil)
		return "", false
	}
	return ledger.AccountID(caller), true
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// RegisterAccount adds a directory entry.
func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	acct, err := h.Directory.Register(r.Context(), ledger.AccountID(req.ID), req.Name, req.Handle)
	if err != nil {
		writeDomainError(w, "Failed to register account", err)
		return
	}

	writeJSON(w, http.StatusCreated, accountDTO(acct))
}

// GetAccount resolves one directory entry.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	acct, err := h.Directory.Resolve(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to resolve account", err)
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(acct))
}

// ListAccounts returns every directory entry.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Directory.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = accountDTO(&accounts[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccountTransfers returns the account's transfer history.
func (h *Handler) GetAccountTransfers(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	views, err := h.Ledger.TransfersFor(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list transfers", err)
		return
	}

	dtos := make([]TransferDTO, len(views))
	for i := range views {
		dtos[i] = transferDTO(&views[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func accountDTO(acct *directory.Account) AccountDTO {
	return AccountDTO{
		ID:        string(acct.ID),
		Name:      acct.Name,
		Handle:    acct.Handle,
		CreatedAt: acct.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// InitTransfer escrows funds and creates an Active transfer record.
func (h *Handler) InitTransfer(w http.ResponseWriter, r *http.Request) {
	sender, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req InitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Ledger.InitTransfer(r.Context(), sender,
		ledger.AccountID(req.Receiver), req.Amount,
		ledger.AssetKind(req.Asset), ledger.TxKey(req.TxKey))
	if err != nil {
		writeDomainError(w, "Failed to initiate transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, transferDTO(view))
}

// SendDirect records an immediate, non-escrow payment.
func (h *Handler) SendDirect(w http.ResponseWriter, r *http.Request) {
	sender, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req InitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Ledger.SendDirect(r.Context(), sender,
		ledger.AccountID(req.Receiver), req.Amount,
		ledger.AssetKind(req.Asset), ledger.TxKey(req.TxKey))
	if err != nil {
		writeDomainError(w, "Failed to record direct send", err)
		return
	}

	writeJSON(w, http.StatusCreated, transferDTO(view))
}

// GetTransfer returns one transfer projection.
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	key := ledger.TxKey(chi.URLParam(r, "key"))

	view, err := h.Ledger.Transfer(r.Context(), key)
	if err != nil {
		writeDomainError(w, "Failed to get transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, transferDTO(view))
}

// ClaimTransfer pays the receiver after code verification.
func (h *Handler) ClaimTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	key := ledger.TxKey(chi.URLParam(r, "key"))

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Ledger.Claim(r.Context(), key, req.VerificationCode, caller, ledger.TxKey(req.TxKey))
	if err != nil {
		writeDomainError(w, "Failed to claim transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, transferDTO(view))
}

// RejectTransfer declines a transfer; funds stay escrowed for refund.
func (h *Handler) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	key := ledger.TxKey(chi.URLParam(r, "key"))

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Ledger.Reject(r.Context(), key, req.VerificationCode, caller, ledger.TxKey(req.TxKey))
	if err != nil {
		writeDomainError(w, "Failed to reject transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, transferDTO(view))
}

// RefundTransfer returns a rejected transfer's funds to the sender.
func (h *Handler) RefundTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	key := ledger.TxKey(chi.URLParam(r, "key"))

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Ledger.Refund(r.Context(), key, caller, ledger.TxKey(req.TxKey))
	if err != nil {
		writeDomainError(w, "Failed to refund transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, transferDTO(view))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// CreatePayroll stores a payroll definition owned by the caller.
func (h *Handler) CreatePayroll(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req CreatePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	recipients := make([]ledger.AccountID, len(req.Recipients))
	for i, a := range req.Recipients {
		recipients[i] = ledger.AccountID(a)
	}

	view, err := h.Ledger.CreatePayroll(r.Context(), ledger.PayrollName(req.Name),
		recipients, req.Amounts, ledger.AssetKind(req.Asset), owner)
	if err != nil {
		writeDomainError(w, "Failed to create payroll", err)
		return
	}
	writeJSON(w, http.StatusCreated, payrollDTO(view))
}

// ListPayrolls returns the caller's payroll definitions.
func (h *Handler) ListPayrolls(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}

	views, err := h.Ledger.PayrollsFor(r.Context(), owner)
	if err != nil {
		writeDomainError(w, "Failed to list payrolls", err)
		return
	}

	dtos := make([]PayrollDTO, len(views))
	for i := range views {
		dtos[i] = payrollDTO(&views[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayroll returns one payroll projection.
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	name := ledger.PayrollName(chi.URLParam(r, "name"))

	view, err := h.Ledger.Payroll(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to get payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, payrollDTO(view))
}

// ExecutePayroll runs a payroll against the pool.
func (h *Handler) ExecutePayroll(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	name := ledger.PayrollName(chi.URLParam(r, "name"))

	var req ExecutePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.Ledger.ExecutePayroll(r.Context(), name, req.Funding,
		ledger.AssetKind(req.Asset), caller, ledger.TxKey(req.TxKey))
	if err != nil {
		writeDomainError(w, "Failed to execute payroll", err)
		return
	}
	writeJSON(w, http.StatusCreated, bulkTransferDTO(view))
}

// GetBulkTransfer returns one payroll-execution projection.
func (h *Handler) GetBulkTransfer(w http.ResponseWriter, r *http.Request) {
	key := ledger.TxKey(chi.URLParam(r, "key"))

	view, err := h.Ledger.BulkTransfer(r.Context(), key)
	if err != nil {
		writeDomainError(w, "Failed to get bulk transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, bulkTransferDTO(view))
}

// =============================================================================
// POOL HANDLERS
// =============================================================================

// GetPoolBalances returns the pooled balance per asset kind.
func (h *Handler) GetPoolBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Ledger.PoolBalances(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read pool balances", err)
		return
	}

	dtos := make([]PoolBalanceDTO, 0, len(balances))
	for _, kind := range ledger.Kinds() {
		dtos = append(dtos, PoolBalanceDTO{
			Asset:          string(kind),
			Balance:        balances[kind],
			DisplayBalance: displayAmount(balances[kind], kind),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	writeError(w, statusForError(err), msg, err)
}

func statusForError(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err):
		return http.StatusConflict
	case ledger.IsUnauthorized(err):
		return http.StatusForbidden
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
