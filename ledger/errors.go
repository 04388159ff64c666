/*
errors.go - Centralized error types for the escrow engine

PURPOSE:
  All error kinds in one place. Every guard failure aborts the whole
  operation with no partial state change, so these are the only
  user-visible failure modes: the caller decides whether to resubmit.

ERROR CATEGORIES:
  1. Key errors       - duplicate or missing transaction keys / names
  2. Authorization    - caller is not the expected sender/receiver/owner
  3. Transition       - attempted status change not legal from current state
  4. Funds            - escrow or funding shortfall
  5. Input            - zero amounts, overflow, mismatched parameters

USAGE:
  if errors.Is(err, ledger.ErrInvalidVerificationCode) {
      // wrong code; record and pool untouched
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateKey is returned when creating a record with an
	// already-used transaction key.
	ErrDuplicateKey = errors.New("duplicate transaction key")

	// ErrNotFound is returned when a lookup key or name doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidReceiver is returned when the caller of claim/reject is not
	// the record's receiver.
	ErrInvalidReceiver = errors.New("caller is not the receiver")

	// ErrInvalidSender is returned when the caller of refund is not the
	// record's sender.
	ErrInvalidSender = errors.New("caller is not the sender")

	// ErrNotPayrollOwner is returned when the caller of execute is not the
	// payroll's owner.
	ErrNotPayrollOwner = errors.New("caller is not the payroll owner")

	// ErrTransactionNotActive is returned when claim/reject targets a record
	// that is not Active.
	ErrTransactionNotActive = errors.New("transaction is not active")

	// ErrInvalidStatus is returned when refund targets a record that is not
	// Rejected.
	ErrInvalidStatus = errors.New("transition not legal from current status")

	// ErrInvalidVerificationCode is returned on a code mismatch. The record
	// and the pool are left untouched.
	ErrInvalidVerificationCode = errors.New("invalid verification code")

	// ErrInsufficientEscrow is returned by the pool when a withdrawal
	// exceeds the pooled balance.
	ErrInsufficientEscrow = errors.New("insufficient escrowed balance")

	// ErrInsufficientBalance is returned when a claim would exceed the pool.
	// Unreachable while the deposit invariant holds, but checked anyway.
	ErrInsufficientBalance = errors.New("insufficient pool balance for claim")

	// ErrInsufficientFunds is returned when payroll funding is below the
	// definition total.
	ErrInsufficientFunds = errors.New("insufficient funding for payroll")

	// ErrInvalidAmount is returned for zero amounts and for arithmetic
	// overflow while summing.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidParameters is returned for mismatched collection lengths or
	// a wrong asset kind.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrEmptyRecipients is returned when a payroll is defined with no
	// recipients.
	ErrEmptyRecipients = errors.New("payroll has no recipients")

	// ErrPayrollAlreadyExists is returned when a payroll name is taken.
	ErrPayrollAlreadyExists = errors.New("payroll already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports a payroll funding shortfall.
type InsufficientFundsError struct {
	Payroll  PayrollName
	Required uint64
	Provided uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("payroll %q requires %d, funded with %d", e.Payroll, e.Required, e.Provided)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientEscrowError reports a pool withdrawal shortfall.
type InsufficientEscrowError struct {
	Asset     AssetKind
	Available uint64
	Requested uint64
}

func (e *InsufficientEscrowError) Error() string {
	return fmt.Sprintf("escrow pool %s holds %d, withdrawal of %d refused", e.Asset, e.Available, e.Requested)
}

func (e *InsufficientEscrowError) Unwrap() error { return ErrInsufficientEscrow }

// TransitionError reports an attempted transition that is not legal from
// the record's current status.
type TransitionError struct {
	Key     TxKey
	Status  TransferStatus
	Attempt string // "claim", "reject", "refund"
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s transfer %s in status %s", e.Attempt, e.Key, e.Status)
}

func (e *TransitionError) Unwrap() error {
	if e.Attempt == "refund" {
		return ErrInvalidStatus
	}
	return ErrTransactionNotActive
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err indicates the caller is not the
// expected sender, receiver or owner.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidReceiver) ||
		errors.Is(err, ErrInvalidSender) ||
		errors.Is(err, ErrNotPayrollOwner)
}

// IsConflict reports whether err indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrPayrollAlreadyExists)
}

// IsClientError reports whether err is due to invalid caller input rather
// than an internal failure.
func IsClientError(err error) bool {
	return IsUnauthorized(err) ||
		IsConflict(err) ||
		errors.Is(err, ErrTransactionNotActive) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidVerificationCode) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrEmptyRecipients)
}
