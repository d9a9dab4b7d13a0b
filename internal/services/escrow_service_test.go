package services

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignJob(t *testing.T, env *testEnv, customerID, tradespersonID string) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := env.seedOpenJob(customerID)
	room := env.seedRoom(job.ID, customerID, tradespersonID)
	_, err := env.jobs.AcceptProposal(ctx, job.ID, customerID, room.ID)
	require.NoError(t, err)
	return job
}

func TestGenerateCompletionCode(t *testing.T) {
	t.Parallel()
	for i := 0; i < 200; i++ {
		code, err := GenerateCompletionCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestEscrow_RecordDepositMintsCode(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	before, err := env.jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)

	resp, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_abc")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, resp.Status)
	assert.Equal(t, tp.ID, resp.PayeeID)

	after, err := env.jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, after.IsPaid)
	assert.NotEqual(t, before.CompletionCode, after.CompletionCode, "deposit must mint a fresh code")
	assert.Len(t, after.CompletionCode, 6)

	// Tradesperson is told escrow is funded.
	count, err := env.notifications.CountUnread(ctx, tp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count) // accept + escrow funded
}

func TestEscrow_DepositReplayIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	first, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_replay")
	require.NoError(t, err)
	codeAfterFirst, _ := env.jobRepo.FindByID(ctx, job.ID)

	second, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_replay")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "replay must return the original transaction")

	codeAfterSecond, _ := env.jobRepo.FindByID(ctx, job.ID)
	assert.Equal(t, codeAfterFirst.CompletionCode, codeAfterSecond.CompletionCode,
		"replay must not rotate the code")

	all, err := env.transactionRepo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEscrow_SecondDepositRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	_, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_one")
	require.NoError(t, err)

	_, err = env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_two")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
}

func TestEscrow_FailedLedgerWriteLeavesJobUnpaid(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	// The ledger insert fails mid-deposit. The paid flag and the minted
	// code must roll back with it, otherwise the confirmation can never
	// be retried.
	env.transactionRepo.failNextCreate = assert.AnError
	_, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_crash")
	require.Error(t, err)

	after, err := env.jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, after.IsPaid)
	all, err := env.transactionRepo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	// The processor retries the same confirmation; this time it lands.
	resp, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_crash")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, resp.Status)

	final, err := env.jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, final.IsPaid)
	all, err = env.transactionRepo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "pi_crash", all[0].Reference)
}

func TestEscrow_DepositRecoversMissingLedgerRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	// A job flagged paid with no ledger row at all, as left behind by a
	// write that was not yet transactional. The confirmed reference must
	// re-attach its row instead of bouncing off the paid flag forever.
	orphan, err := env.jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	orphan.IsPaid = true
	orphan.CompletionCode = "654321"
	require.NoError(t, env.jobRepo.Update(ctx, orphan))

	resp, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_orphan")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, resp.Status)

	// The recovered row is what VerifyAndRelease captures against.
	tr, err := env.transactionRepo.FindSuccessfulByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_orphan", tr.Reference)

	// The code minted by the original deposit stays valid.
	recovered, err := env.jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "654321", recovered.CompletionCode)

	require.NoError(t, env.escrow.VerifyAndRelease(ctx, job.ID, "654321"))
	assert.Equal(t, []string{"pi_orphan"}, env.processor.released)
}

func TestEscrow_DepositRequiresAssignment(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	job := env.seedOpenJob(customer.ID)

	_, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_open")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestEscrow_ReferenceBoundToOneJob(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	jobA := assignJob(t, env, customer.ID, tp.ID)
	jobB := assignJob(t, env, customer.ID, tp.ID)

	_, err := env.escrow.RecordDeposit(ctx, jobA.ID, customer.ID, 2000, "pi_shared")
	require.NoError(t, err)

	_, err = env.escrow.RecordDeposit(ctx, jobB.ID, customer.ID, 2000, "pi_shared")
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePayment)
}

func TestEscrow_ConcurrentSameReferenceDeposits(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	const attempts = 6
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_race")
		}(i)
	}
	wg.Wait()

	// Every replay either succeeds idempotently or reports the paid state;
	// the store ends with exactly one transaction either way.
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
		}
	}
	all, err := env.transactionRepo.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEscrow_VerifyAndRelease(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	_, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_rel")
	require.NoError(t, err)
	paid, _ := env.jobRepo.FindByID(ctx, job.ID)

	// Wrong code mutates nothing.
	wrong := "000000"
	if paid.CompletionCode == wrong {
		wrong = "000001"
	}
	err = env.escrow.VerifyAndRelease(ctx, job.ID, wrong)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
	unchanged, _ := env.jobRepo.FindByID(ctx, job.ID)
	assert.Equal(t, models.JobStatusAssigned, unchanged.Status)
	assert.Empty(t, env.processor.released)

	require.NoError(t, env.escrow.VerifyAndRelease(ctx, job.ID, paid.CompletionCode))
	assert.Equal(t, []string{"pi_rel"}, env.processor.released)

	// The correct code is single-use: resubmitting it after completion is
	// a transition error, not a second release.
	err = env.escrow.VerifyAndRelease(ctx, job.ID, paid.CompletionCode)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Len(t, env.processor.released, 1)
}

func TestEscrow_ReleaseFailureStillCompletes(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	_, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_fail")
	require.NoError(t, err)
	paid, _ := env.jobRepo.FindByID(ctx, job.ID)

	env.processor.failRelease = assert.AnError
	require.NoError(t, env.escrow.VerifyAndRelease(ctx, job.ID, paid.CompletionCode))

	final, _ := env.jobRepo.FindByID(ctx, job.ID)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
}

func TestEscrow_Refund(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()
	customer := env.seedUser(models.UserRoleCustomer)
	tp := env.seedUser(models.UserRoleTradesperson)
	job := assignJob(t, env, customer.ID, tp.ID)

	resp, err := env.escrow.RecordDeposit(ctx, job.ID, customer.ID, 2000, "pi_refund")
	require.NoError(t, err)

	require.NoError(t, env.escrow.Refund(ctx, job.ID))
	assert.Equal(t, []string{"pi_refund"}, env.processor.refunded)

	tr, err := env.transactionRepo.FindByReference(ctx, "pi_refund")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusRefunded, tr.Status)
	assert.Equal(t, resp.ID, tr.ID)

	// Nothing left to refund.
	err = env.escrow.Refund(ctx, job.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEscrow_CreateDepositIntent(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	intent, err := env.escrow.CreateDepositIntent(ctx, 1250)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.NotEmpty(t, intent.Reference)
}
