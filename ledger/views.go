/*
views.go - Read-only query projections

PURPOSE:
  Queries return plain value copies with internal handles omitted: the
  verification code never appears in a projection (it gates claim/reject
  and is delivered out of band), and nothing in a view aliases back into
  mutable ledger state.
*/
package ledger

import "time"

// TransferView is the copy-out projection of a TransferRecord.
type TransferView struct {
	Key         TxKey
	Sender      AccountID
	Receiver    AccountID
	Amount      uint64
	Asset       AssetKind
	Status      TransferStatus
	CreatedAt   time.Time
	FinalizedBy TxKey
}

// RecipientView is one entry of a BulkTransferView.
type RecipientView struct {
	Address AccountID
	Amount  uint64
	Status  TransferStatus
}

// BulkTransferView is the copy-out projection of a BulkTransferRecord.
type BulkTransferView struct {
	Key         TxKey
	Sender      AccountID
	Recipients  []RecipientView
	TotalAmount uint64
	Asset       AssetKind
	CreatedAt   time.Time
}

// PayrollView is the copy-out projection of a PayrollDefinition.
type PayrollView struct {
	Name       PayrollName
	Recipients []AccountID
	Amounts    []uint64
	Total      uint64
	Asset      AssetKind
	Owner      AccountID
	CreatedAt  time.Time
}

func viewOf(rec TransferRecord) *TransferView {
	return &TransferView{
		Key:         rec.Key,
		Sender:      rec.Sender,
		Receiver:    rec.Receiver,
		Amount:      rec.Amount,
		Asset:       rec.Asset,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
		FinalizedBy: rec.FinalizedBy,
	}
}

func bulkViewOf(rec BulkTransferRecord) *BulkTransferView {
	recipients := make([]RecipientView, len(rec.Recipients))
	for i, r := range rec.Recipients {
		recipients[i] = RecipientView{Address: r.Address, Amount: r.Amount, Status: r.Status}
	}
	return &BulkTransferView{
		Key:         rec.Key,
		Sender:      rec.Sender,
		Recipients:  recipients,
		TotalAmount: rec.TotalAmount,
		Asset:       rec.Asset,
		CreatedAt:   rec.CreatedAt,
	}
}

func payrollViewOf(def PayrollDefinition) *PayrollView {
	total, _ := SumChecked(def.Amounts)
	return &PayrollView{
		Name:       def.Name,
		Recipients: append([]AccountID(nil), def.Recipients...),
		Amounts:    append([]uint64(nil), def.Amounts...),
		Total:      total,
		Asset:      def.Asset,
		Owner:      def.Owner,
		CreatedAt:  def.CreatedAt,
	}
}
