/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes for the HTTP surface. Responses carry amounts twice: the
  raw minor-unit integer the ledger operates on, and a display string
  rendered with the asset's decimal denomination. The denomination is
  presentation only - the engine never sees anything but integers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/escrow-ledger/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

type RegisterAccountRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle,omitempty"`
}

type InitTransferRequest struct {
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
	Asset    string `json:"asset"`
	TxKey    string `json:"tx_key"`
}

type ClaimRequest struct {
	VerificationCode string `json:"verification_code"`
	TxKey            string `json:"tx_key"`
}

type RefundRequest struct {
	TxKey string `json:"tx_key"`
}

type CreatePayrollRequest struct {
	Name       string   `json:"name"`
	Recipients []string `json:"recipients"`
	Amounts    []uint64 `json:"amounts"`
	Asset      string   `json:"asset"`
}

type ExecutePayrollRequest struct {
	Funding uint64 `json:"funding"`
	Asset   string `json:"asset"`
	TxKey   string `json:"tx_key"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type AccountDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"handle,omitempty"`
	CreatedAt string `json:"created_at"`
}

type TransferDTO struct {
	Key           string `json:"key"`
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	Amount        uint64 `json:"amount"`
	DisplayAmount string `json:"display_amount"`
	Asset         string `json:"asset"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	FinalizedBy   string `json:"finalized_by,omitempty"`
}

type RecipientDTO struct {
	Address       string `json:"address"`
	Amount        uint64 `json:"amount"`
	DisplayAmount string `json:"display_amount"`
	Status        string `json:"status"`
}

type BulkTransferDTO struct {
	Key           string         `json:"key"`
	Sender        string         `json:"sender"`
	Recipients    []RecipientDTO `json:"recipients"`
	TotalAmount   uint64         `json:"total_amount"`
	DisplayAmount string         `json:"display_amount"`
	Asset         string         `json:"asset"`
	CreatedAt     string         `json:"created_at"`
}

type PayrollDTO struct {
	Name       string   `json:"name"`
	Recipients []string `json:"recipients"`
	Amounts    []uint64 `json:"amounts"`
	Total      uint64   `json:"total"`
	Asset      string   `json:"asset"`
	Owner      string   `json:"owner"`
	CreatedAt  string   `json:"created_at"`
}

type PoolBalanceDTO struct {
	Asset          string `json:"asset"`
	Balance        uint64 `json:"balance"`
	DisplayBalance string `json:"display_balance"`
}

// displayAmount renders a minor-unit amount with the asset's decimal
// denomination, e.g. 1500000 stable -> "1.5".
func displayAmount(amount uint64, kind ledger.AssetKind) string {
	return decimal.New(int64(amount), -kind.Decimals()).String()
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func transferDTO(v *ledger.TransferView) TransferDTO {
	return TransferDTO{
		Key:           string(v.Key),
		Sender:        string(v.Sender),
		Receiver:      string(v.Receiver),
		Amount:        v.Amount,
		DisplayAmount: displayAmount(v.Amount, v.Asset),
		Asset:         string(v.Asset),
		Status:        string(v.Status),
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
		FinalizedBy:   string(v.FinalizedBy),
	}
}

func bulkTransferDTO(v *ledger.BulkTransferView) BulkTransferDTO {
	recipients := make([]RecipientDTO, len(v.Recipients))
	for i, r := range v.Recipients {
		recipients[i] = RecipientDTO{
			Address:       string(r.Address),
			Amount:        r.Amount,
			DisplayAmount: displayAmount(r.Amount, v.Asset),
			Status:        string(r.Status),
		}
	}
	return BulkTransferDTO{
		Key:           string(v.Key),
		Sender:        string(v.Sender),
		Recipients:    recipients,
		TotalAmount:   v.TotalAmount,
		DisplayAmount: displayAmount(v.TotalAmount, v.Asset),
		Asset:         string(v.Asset),
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
	}
}

func payrollDTO(v *ledger.PayrollView) PayrollDTO {
	recipients := make([]string, len(v.Recipients))
	for i, r := range v.Recipients {
		recipients[i] = string(r)
	}
	return PayrollDTO{
		Name:       string(v.Name),
		Recipients: recipients,
		Amounts:    append([]uint64(nil), v.Amounts...),
		Total:      v.Total,
		Asset:      string(v.Asset),
		Owner:      string(v.Owner),
		CreatedAt:  v.CreatedAt.Format(time.RFC3339),
	}
}
