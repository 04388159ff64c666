/*
registry.go - Transfer record registry and status state machine

PURPOSE:
  Owns the per-record status transitions:

      init_transfer ──▶ Active ──claim──▶ Claimed
                          │
                          └───reject──▶ Rejected ──refund──▶ Refunded

      send_directly ──▶ Completed

  Claimed, Refunded and Completed are terminal. Rejected is not: the
  escrowed funds stay in the pool until the sender refunds.

GUARD ORDERING:
  Guards run in a fixed order so callers see stable error kinds:
  existence, status, caller identity, verification code. Every guard
  failure aborts the whole operation; fund movement is composed by the
  service inside a store transaction.

SEE ALSO:
  - service.go: Composes registry transitions with pool movements
*/
package ledger

import "context"

// TransferRegistry is the keyed store of individual transfer records and
// the owner of their status state machine.
type TransferRegistry struct {
	store Store
}

func NewTransferRegistry(store Store) *TransferRegistry {
	return &TransferRegistry{store: store}
}

// Create inserts a new record. Fails with ErrDuplicateKey if the key is
// already used, regardless of payload.
func (r *TransferRegistry) Create(ctx context.Context, rec TransferRecord) error {
	return r.store.InsertTransfer(ctx, rec)
}

// Get returns the record for key, failing with ErrNotFound when absent.
func (r *TransferRegistry) Get(ctx context.Context, key TxKey) (*TransferRecord, error) {
	rec, err := r.store.GetTransfer(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Authorize validates the claim/reject guards for a record:
// status Active, caller is the receiver, code matches. Guard order is
// fixed; the record is not mutated.
func (r *TransferRegistry) Authorize(rec *TransferRecord, code string, caller AccountID, attempt string) error {
	if rec.Status != StatusActive {
		return &TransitionError{Key: rec.Key, Status: rec.Status, Attempt: attempt}
	}
	if rec.Receiver != caller {
		return ErrInvalidReceiver
	}
	if rec.VerificationCode != code {
		return ErrInvalidVerificationCode
	}
	return nil
}

// AuthorizeRefund validates the refund guards: status Rejected and caller
// is the sender.
func (r *TransferRegistry) AuthorizeRefund(rec *TransferRecord, caller AccountID) error {
	if rec.Status != StatusRejected {
		return &TransitionError{Key: rec.Key, Status: rec.Status, Attempt: "refund"}
	}
	if rec.Sender != caller {
		return ErrInvalidSender
	}
	return nil
}

// Finalize records the transition: new status plus the write-once
// finalizing key referencing the transaction that resolved the record.
func (r *TransferRegistry) Finalize(ctx context.Context, key TxKey, status TransferStatus, finalizedBy TxKey) error {
	return r.store.FinalizeTransfer(ctx, key, status, finalizedBy)
}
