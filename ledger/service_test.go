package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/escrow-ledger/ledger"
	"github.com/warp/escrow-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testClock = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// eventcapture records emitted events for assertion.
type eventCapture struct {
	events []ledger.Event
}

func (c *eventCapture) Emit(e ledger.Event) { c.events = append(c.events, e) }

func newTestService(t *testing.T) (*ledger.Service, *store.TxMemory, *eventCapture) {
	t.Helper()
	mem := store.NewTxMemory()
	capture := &eventCapture{}
	svc := ledger.NewService(mem, capture)
	svc.SetClock(func() time.Time { return testClock })
	return svc, mem, capture
}

// codeFor recomputes the verification code the service derived at the
// pinned clock.
func codeFor(sender, receiver ledger.AccountID) string {
	return ledger.GenerateCode(sender, receiver, testClock)
}

func poolBalance(t *testing.T, svc *ledger.Service, kind ledger.AssetKind) uint64 {
	t.Helper()
	balance, err := svc.PoolBalance(context.Background(), kind)
	require.NoError(t, err)
	return balance
}

// =============================================================================
// INIT TRANSFER TESTS
// =============================================================================

func TestService_InitTransfer_EscrowsIntoPool(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: Alice initiates a 100 stable transfer to Bob
	// THEN: An Active record exists and the stable pool holds 100

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusActive, view.Status)
	assert.Equal(t, ledger.AccountID("alice"), view.Sender)
	assert.Equal(t, ledger.AccountID("bob"), view.Receiver)
	assert.Equal(t, uint64(100), view.Amount)
	assert.Empty(t, view.FinalizedBy)

	assert.Equal(t, uint64(100), poolBalance(t, svc, ledger.AssetStable))
	assert.Equal(t, uint64(0), poolBalance(t, svc, ledger.AssetPrimary))
}

func TestService_InitTransfer_ZeroAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.InitTransfer(context.Background(), "alice", "bob", 0, ledger.AssetStable, "tx-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestService_InitTransfer_UnknownAsset(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.InitTransfer(context.Background(), "alice", "bob", 100, "doge", "tx-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
}

func TestService_InitTransfer_DuplicateKey_PoolUntouched(t *testing.T) {
	// GIVEN: An existing transfer under key tx-1
	// WHEN: Initiating another transfer reusing tx-1
	// THEN: The second init fails and the pool still holds only the first
	//       deposit

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	_, err = svc.InitTransfer(ctx, "carol", "dave", 999, ledger.AssetStable, "tx-1")
	assert.ErrorIs(t, err, ledger.ErrDuplicateKey)

	assert.Equal(t, uint64(100), poolBalance(t, svc, ledger.AssetStable))
}

// =============================================================================
// CLAIM TESTS
// =============================================================================

func TestService_Claim_PaysReceiverAndDrainsPool(t *testing.T) {
	// GIVEN: Alice escrowed 100 stable for Bob
	// WHEN: Bob claims with the correct code
	// THEN: The record is Claimed with the finalizing key and the pool is
	//       back to zero

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	view, err := svc.Claim(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusClaimed, view.Status)
	assert.Equal(t, ledger.TxKey("fin-1"), view.FinalizedBy)
	assert.Equal(t, uint64(0), poolBalance(t, svc, ledger.AssetStable))
}

func TestService_Claim_WrongCode_NothingChanges(t *testing.T) {
	// GIVEN: An Active escrowed transfer
	// WHEN: The receiver presents a wrong code
	// THEN: The claim fails, the record stays Active and the pool keeps
	//       the escrowed amount

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "tx-1", "000000000000", "bob", "fin-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidVerificationCode)

	view, err := svc.Transfer(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusActive, view.Status)
	assert.Empty(t, view.FinalizedBy)
	assert.Equal(t, uint64(100), poolBalance(t, svc, ledger.AssetStable))
}

func TestService_Claim_WrongCaller(t *testing.T) {
	// GIVEN: A transfer addressed to Bob
	// WHEN: Carol tries to claim it, even with the correct code
	// THEN: The claim fails before the code is checked

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "tx-1", codeFor("alice", "bob"), "carol", "fin-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidReceiver)
}

func TestService_Claim_UnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Claim(context.Background(), "missing", "ABCDEF000000", "bob", "fin-1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_Claim_Twice(t *testing.T) {
	// GIVEN: A claimed transfer
	// WHEN: Claiming it again
	// THEN: The second claim fails because the record is no longer Active

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-2")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotActive)

	var transition *ledger.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, ledger.StatusClaimed, transition.Status)
}

// =============================================================================
// REJECT / REFUND TESTS
// =============================================================================

func TestService_RejectThenRefund(t *testing.T) {
	// GIVEN: Alice escrowed 100 stable for Bob
	// WHEN: Bob rejects, then Alice refunds
	// THEN: Rejection keeps the funds pooled; the refund drains them and
	//       the record ends Refunded

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, rejected.Status)
	assert.Equal(t, uint64(100), poolBalance(t, svc, ledger.AssetStable))

	refunded, err := svc.Refund(ctx, "tx-1", "alice", "fin-2")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRefunded, refunded.Status)
	assert.Equal(t, ledger.TxKey("fin-2"), refunded.FinalizedBy)
	assert.Equal(t, uint64(0), poolBalance(t, svc, ledger.AssetStable))
}

func TestService_Refund_WhileActive(t *testing.T) {
	// GIVEN: An Active transfer that was never rejected
	// WHEN: The sender tries to refund
	// THEN: The refund fails; only Rejected records are refundable

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	_, err = svc.Refund(ctx, "tx-1", "alice", "fin-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidStatus)
	assert.Equal(t, uint64(100), poolBalance(t, svc, ledger.AssetStable))
}

func TestService_Refund_WrongCaller(t *testing.T) {
	// GIVEN: A rejected transfer from Alice
	// WHEN: Bob (the receiver) tries to refund it
	// THEN: The refund fails; only the sender may refund

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	require.NoError(t, err)

	_, err = svc.Refund(ctx, "tx-1", "bob", "fin-2")
	assert.ErrorIs(t, err, ledger.ErrInvalidSender)
}

func TestService_Refund_Twice(t *testing.T) {
	// GIVEN: A refunded transfer
	// WHEN: Refunding again
	// THEN: The second refund fails and the pool is not double-drained

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	require.NoError(t, err)
	_, err = svc.Refund(ctx, "tx-1", "alice", "fin-2")
	require.NoError(t, err)

	_, err = svc.Refund(ctx, "tx-1", "alice", "fin-3")
	assert.ErrorIs(t, err, ledger.ErrInvalidStatus)
	assert.Equal(t, uint64(0), poolBalance(t, svc, ledger.AssetStable))
}

// =============================================================================
// DIRECT SEND TESTS
// =============================================================================

func TestService_SendDirect_NoEscrow(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: Alice sends 100 stable directly to Bob
	// THEN: A Completed audit record exists and the pool stays empty

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.SendDirect(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusCompleted, view.Status)
	assert.Equal(t, uint64(0), poolBalance(t, svc, ledger.AssetStable))
}

func TestService_SendDirect_CannotBeClaimed(t *testing.T) {
	// GIVEN: A direct (Completed) payment record
	// WHEN: The receiver tries to claim it
	// THEN: The claim fails; Completed is terminal

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SendDirect(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotActive)
}

func TestService_SendDirect_ZeroAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SendDirect(context.Background(), "alice", "bob", 0, ledger.AssetStable, "tx-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestService_TransfersFor_BothDirections(t *testing.T) {
	// GIVEN: Bob received one transfer and sent another
	// WHEN: Listing Bob's transfers
	// THEN: Both appear, in creation order

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)
	_, err = svc.InitTransfer(ctx, "bob", "carol", 50, ledger.AssetPrimary, "tx-2")
	require.NoError(t, err)
	_, err = svc.InitTransfer(ctx, "alice", "carol", 25, ledger.AssetStable, "tx-3")
	require.NoError(t, err)

	views, err := svc.TransfersFor(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, ledger.TxKey("tx-1"), views[0].Key)
	assert.Equal(t, ledger.TxKey("tx-2"), views[1].Key)
}

func TestService_Transfer_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Transfer(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.True(t, ledger.IsNotFound(err))
}

func TestService_PoolBalances_AllKinds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)
	_, err = svc.InitTransfer(ctx, "alice", "bob", 7, ledger.AssetPrimary, "tx-2")
	require.NoError(t, err)

	balances, err := svc.PoolBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balances[ledger.AssetStable])
	assert.Equal(t, uint64(7), balances[ledger.AssetPrimary])
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestService_Events_FullEscrowLifecycle(t *testing.T) {
	// GIVEN: An init/reject/refund sequence
	// WHEN: Each mutation commits
	// THEN: One event per mutation reaches the sink, in order

	svc, _, capture := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, "tx-1", codeFor("alice", "bob"), "bob", "fin-1")
	require.NoError(t, err)
	_, err = svc.Refund(ctx, "tx-1", "alice", "fin-2")
	require.NoError(t, err)

	require.Len(t, capture.events, 3)
	assert.Equal(t, ledger.EventTransferInitiated, capture.events[0].Kind)
	assert.Equal(t, ledger.EventTransferRejected, capture.events[1].Kind)
	assert.Equal(t, ledger.EventTransferRefunded, capture.events[2].Kind)

	initiated := capture.events[0]
	assert.Equal(t, ledger.AccountID("alice"), initiated.Actor)
	assert.Equal(t, ledger.AccountID("bob"), initiated.Recipient)
	assert.Equal(t, uint64(100), initiated.Amount)
	assert.Equal(t, ledger.TxKey("tx-1"), initiated.Key)
}

func TestService_Events_NotEmittedOnFailure(t *testing.T) {
	// GIVEN: A failed claim attempt
	// WHEN: Inspecting the sink
	// THEN: Only the init event was emitted

	svc, _, capture := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitTransfer(ctx, "alice", "bob", 100, ledger.AssetStable, "tx-1")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "tx-1", "000000000000", "bob", "fin-1")
	require.Error(t, err)

	require.Len(t, capture.events, 1)
	assert.Equal(t, ledger.EventTransferInitiated, capture.events[0].Kind)
}
