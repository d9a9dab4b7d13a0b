package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"kaamsetu_backend/internal/logger"
	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/internal/payments"
	"kaamsetu_backend/internal/repositories"
	"kaamsetu_backend/internal/services/dto"
	"kaamsetu_backend/pkg/apperrors"
)

// EscrowService bridges the opaque payment processor and the job's
// paid/code state. Funds are never marked released without a verified
// completion code, and a processor reference is never recorded twice.
type EscrowService interface {
	// CreateDepositIntent asks the processor to authorize a hold; the
	// returned client secret completes the payment on the customer's
	// device, the reference comes back via RecordDeposit once the
	// processor confirms.
	CreateDepositIntent(ctx context.Context, amount float64) (*payments.Intent, error)

	// RecordDeposit is idempotent on the processor reference: a replayed
	// confirmation returns the original transaction and leaves the
	// completion code untouched.
	RecordDeposit(ctx context.Context, jobID, payerID string, amount float64, processorReference string) (*dto.TransactionResponse, error)

	// VerifyAndRelease compares the presented code in constant time and,
	// on the one correct attempt, completes the job and releases the held
	// funds. Wrong codes mutate nothing.
	VerifyAndRelease(ctx context.Context, jobID, presentedCode string) error

	// Refund reverses the held deposit; dispute hook.
	Refund(ctx context.Context, jobID string) error
}

type escrowService struct {
	transactionRepo repositories.TransactionRepository
	jobRepo         repositories.JobRepository
	proposalRepo    repositories.ProposalRepository
	notifications   NotificationService
	processor       payments.Processor
	currency        string
}

func NewEscrowService(
	transactionRepo repositories.TransactionRepository,
	jobRepo repositories.JobRepository,
	proposalRepo repositories.ProposalRepository,
	notifications NotificationService,
	processor payments.Processor,
	currency string,
) EscrowService {
	return &escrowService{
		transactionRepo: transactionRepo,
		jobRepo:         jobRepo,
		proposalRepo:    proposalRepo,
		notifications:   notifications,
		processor:       processor,
		currency:        currency,
	}
}

// GenerateCompletionCode draws a uniform 6-digit code from a
// cryptographically secure source. The code is the sole proof-of-completion
// gate, so a guessable PRNG would undermine the escrow.
func GenerateCompletionCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (s *escrowService) CreateDepositIntent(ctx context.Context, amount float64) (*payments.Intent, error) {
	intent, err := s.processor.CreateIntent(ctx, amount, s.currency)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "Payment processor unavailable", 503)
	}
	return intent, nil
}

func (s *escrowService) RecordDeposit(ctx context.Context, jobID, payerID string, amount float64, processorReference string) (*dto.TransactionResponse, error) {
	// Replay of an already-recorded confirmation: return it unchanged.
	if existing, err := s.transactionRepo.FindByReference(ctx, processorReference); err == nil {
		if existing.JobID != jobID {
			return nil, apperrors.ErrDuplicatePayment
		}
		return buildTransactionResponse(existing), nil
	} else if err != repositories.ErrTransactionNotFound {
		return nil, apperrors.InternalError(err)
	}

	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return nil, apperrors.NotFound("job")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if job.AssignedTo == nil {
		return nil, apperrors.ErrInvalidTransition.WithMessage("Deposit requires an assigned job")
	}

	code, err := GenerateCompletionCode()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	tr := &models.Transaction{
		JobID:     jobID,
		PayerID:   payerID,
		PayeeID:   *job.AssignedTo,
		Amount:    amount,
		Reference: processorReference,
		Status:    models.TransactionStatusSuccess,
	}

	// The conditional is_paid write is the single-deposit gate per
	// assignment cycle; the ledger row lands in the same database
	// transaction, so a failed insert rolls the paid flag back and the
	// confirmation can simply be retried.
	if err := s.jobRepo.MarkPaidAndRecord(ctx, jobID, code, tr); err != nil {
		switch err {
		case repositories.ErrJobAlreadyPaid:
			// A concurrent call with the same reference may have won; keep
			// the operation idempotent for that caller.
			if existing, ferr := s.transactionRepo.FindByReference(ctx, processorReference); ferr == nil {
				return buildTransactionResponse(existing), nil
			}
			// Paid with no ledger row at all means an earlier deposit's
			// record was lost. The processor confirmed this reference, so
			// re-attach the row instead of rejecting the retry forever.
			if _, ferr := s.transactionRepo.FindSuccessfulByJob(ctx, jobID); ferr == repositories.ErrTransactionNotFound {
				if cerr := s.transactionRepo.Create(ctx, tr); cerr != nil {
					return nil, apperrors.InternalError(cerr)
				}
				logger.Warn("deposit ledger row recovered", "job_id", jobID, "reference", processorReference)
				return buildTransactionResponse(tr), nil
			}
			return nil, apperrors.ErrAlreadyPaid
		case repositories.ErrJobNotAssigned:
			return nil, apperrors.ErrInvalidTransition.WithMessage("Deposit requires an assigned job")
		case repositories.ErrJobNotFound:
			return nil, apperrors.NotFound("job")
		default:
			return nil, apperrors.InternalError(err)
		}
	}

	s.postSystemMessage(ctx, jobID, *job.AssignedTo, "Escrow funded. The customer holds the completion code.")
	notify(ctx, s.notifications, *job.AssignedTo, "Escrow funded",
		fmt.Sprintf("The deposit for \"%s\" is held in escrow. Ask the customer for the completion code when the work is done.", job.Title),
		jobLink(jobID), &payerID, map[string]string{"job_id": jobID})

	logger.Info("deposit recorded", "job_id", jobID, "amount", amount, "reference", processorReference)

	return buildTransactionResponse(tr), nil
}

func (s *escrowService) VerifyAndRelease(ctx context.Context, jobID, presentedCode string) error {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return apperrors.NotFound("job")
	}
	if err != nil {
		return apperrors.InternalError(err)
	}

	if subtle.ConstantTimeCompare([]byte(job.CompletionCode), []byte(presentedCode)) != 1 {
		return apperrors.ErrInvalidCode
	}

	// Conditional write: exactly one correct attempt completes the job; a
	// re-submission of the correct code finds it already completed.
	if err := s.jobRepo.Complete(ctx, jobID); err != nil {
		switch err {
		case repositories.ErrJobNotAssigned:
			return apperrors.ErrInvalidTransition
		case repositories.ErrJobNotFound:
			return apperrors.NotFound("job")
		default:
			return apperrors.InternalError(err)
		}
	}

	// Release the hold. The job is completed either way; a failed capture
	// is retried out-of-band by ops, not rolled back into the job state.
	if tr, err := s.transactionRepo.FindSuccessfulByJob(ctx, jobID); err == nil {
		if err := s.processor.Release(ctx, tr.Reference); err != nil {
			logger.Error("escrow release failed", "job_id", jobID, "reference", tr.Reference, "error", err)
		}
	} else if err != repositories.ErrTransactionNotFound {
		logger.Error("escrow lookup failed", "job_id", jobID, "error", err)
	}

	logger.Info("job completed", "job_id", jobID)
	return nil
}

func (s *escrowService) Refund(ctx context.Context, jobID string) error {
	tr, err := s.transactionRepo.FindSuccessfulByJob(ctx, jobID)
	if err == repositories.ErrTransactionNotFound {
		return apperrors.NotFound("transaction")
	}
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.processor.Refund(ctx, tr.Reference); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "Payment processor unavailable", 503)
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tr.ID, models.TransactionStatusRefunded); err != nil {
		return apperrors.InternalError(err)
	}

	logger.Info("deposit refunded", "job_id", jobID, "reference", tr.Reference)
	return nil
}

// postSystemMessage drops a system entry into the winning room. Missing
// room (e.g. data created before chat) is tolerated.
func (s *escrowService) postSystemMessage(ctx context.Context, jobID, tradespersonID, content string) {
	room, err := s.proposalRepo.FindByJobAndTradesperson(ctx, jobID, tradespersonID)
	if err != nil {
		return
	}
	msg := &models.Message{
		RoomID:  room.ID,
		Type:    models.MessageTypeSystem,
		Content: content,
	}
	if err := s.proposalRepo.CreateMessage(ctx, msg); err != nil {
		logger.Warn("system message failed", "room_id", room.ID, "error", err)
	}
}

func buildTransactionResponse(tr *models.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		ID:        tr.ID,
		JobID:     tr.JobID,
		PayerID:   tr.PayerID,
		PayeeID:   tr.PayeeID,
		Amount:    tr.Amount,
		Reference: tr.Reference,
		Status:    tr.Status,
		CreatedAt: tr.CreatedAt,
	}
}

func jobLink(jobID string) *string {
	link := "/jobs/" + jobID
	return &link
}
