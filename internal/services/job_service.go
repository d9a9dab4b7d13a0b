package services

import (
	"context"
	"fmt"

	"kaamsetu_backend/internal/email"
	"kaamsetu_backend/internal/logger"
	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/internal/payments"
	"kaamsetu_backend/internal/repositories"
	"kaamsetu_backend/internal/services/dto"
	"kaamsetu_backend/pkg/apperrors"
)

// JobService drives the job through its lifecycle:
// open -> assigned -> completed, with cancellation from open. Every
// transition is delegated to a conditional repository write, so two
// concurrent callers never both succeed.
type JobService interface {
	CreateJob(ctx context.Context, customerID string, req *dto.CreateJobRequest) (*dto.JobResponse, error)
	UpdateJob(ctx context.Context, jobID, customerID string, req *dto.UpdateJobRequest) (*dto.JobResponse, error)
	GetJob(ctx context.Context, jobID, callerID string) (*dto.JobResponse, error)
	ListOpenJobs(ctx context.Context, city string) ([]*dto.JobResponse, error)
	ListMyJobs(ctx context.Context, userID string, role models.UserRole) ([]*dto.JobResponse, error)
	CancelJob(ctx context.Context, jobID, customerID string) error

	// AcceptProposal assigns the job to the tradesperson behind the given
	// room and archives every competing room.
	AcceptProposal(ctx context.Context, jobID, customerID, roomID string) (*dto.JobResponse, error)

	CreateDepositIntent(ctx context.Context, jobID, customerID string, amount float64) (*payments.Intent, error)
	Deposit(ctx context.Context, jobID, customerID string, req *dto.DepositRequest) (*dto.TransactionResponse, error)

	// SubmitCompletionCode is the tradesperson's claim of finished work,
	// proven by the code the customer read out.
	SubmitCompletionCode(ctx context.Context, jobID, tradespersonID, code string) error
}

type jobService struct {
	jobRepo       repositories.JobRepository
	proposalRepo  repositories.ProposalRepository
	userRepo      repositories.UserRepository
	escrow        EscrowService
	notifications NotificationService
	mailer        email.Provider
}

func NewJobService(
	jobRepo repositories.JobRepository,
	proposalRepo repositories.ProposalRepository,
	userRepo repositories.UserRepository,
	escrow EscrowService,
	notifications NotificationService,
	mailer email.Provider,
) JobService {
	return &jobService{
		jobRepo:       jobRepo,
		proposalRepo:  proposalRepo,
		userRepo:      userRepo,
		escrow:        escrow,
		notifications: notifications,
		mailer:        mailer,
	}
}

func (s *jobService) CreateJob(ctx context.Context, customerID string, req *dto.CreateJobRequest) (*dto.JobResponse, error) {
	// A code exists from birth but is worthless until a deposit replaces
	// it; nobody sees it before then.
	code, err := GenerateCompletionCode()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	job := &models.Job{
		CustomerID:     customerID,
		Title:          req.Title,
		Category:       req.Category,
		Description:    req.Description,
		City:           req.City,
		Lat:            req.Lat,
		Lng:            req.Lng,
		Status:         models.JobStatusOpen,
		CompletionCode: code,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.Info("job created", "job_id", job.ID, "customer_id", customerID, "category", req.Category)
	return buildJobResponse(job, customerID), nil
}

func (s *jobService) UpdateJob(ctx context.Context, jobID, customerID string, req *dto.UpdateJobRequest) (*dto.JobResponse, error) {
	job, err := s.findOwnedJob(ctx, jobID, customerID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperrors.ErrInvalidTransition.WithMessage("Only open jobs can be edited")
	}

	if req.Title != nil {
		job.Title = *req.Title
	}
	if req.Category != nil {
		job.Category = *req.Category
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.City != nil {
		job.City = *req.City
	}

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildJobResponse(job, customerID), nil
}

func (s *jobService) GetJob(ctx context.Context, jobID, callerID string) (*dto.JobResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return nil, apperrors.NotFound("job")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildJobResponse(job, callerID), nil
}

func (s *jobService) ListOpenJobs(ctx context.Context, city string) ([]*dto.JobResponse, error) {
	jobs, err := s.jobRepo.ListOpen(ctx, city)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildJobResponses(jobs, ""), nil
}

func (s *jobService) ListMyJobs(ctx context.Context, userID string, role models.UserRole) ([]*dto.JobResponse, error) {
	var (
		jobs []models.Job
		err  error
	)
	if role == models.UserRoleTradesperson {
		jobs, err = s.jobRepo.ListByTradesperson(ctx, userID)
	} else {
		jobs, err = s.jobRepo.ListByCustomer(ctx, userID)
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildJobResponses(jobs, userID), nil
}

func (s *jobService) CancelJob(ctx context.Context, jobID, customerID string) error {
	job, err := s.findOwnedJob(ctx, jobID, customerID)
	if err != nil {
		return err
	}

	archived, err := s.jobRepo.Cancel(ctx, job.ID)
	switch err {
	case nil:
	case repositories.ErrJobNotOpen:
		return apperrors.ErrInvalidTransition.WithMessage("Only open jobs can be cancelled")
	case repositories.ErrJobNotFound:
		return apperrors.NotFound("job")
	default:
		return apperrors.InternalError(err)
	}

	// Tell every tradesperson whose room just got archived.
	rooms, lerr := s.proposalRepo.ListByJob(ctx, jobID)
	if lerr != nil {
		logger.Warn("room listing failed after cancel", "job_id", jobID, "error", lerr)
	}
	for i := range rooms {
		notify(ctx, s.notifications, rooms[i].TradespersonID, "Job cancelled",
			fmt.Sprintf("\"%s\" was cancelled by the customer", job.Title),
			jobLink(jobID), &customerID, map[string]string{"job_id": jobID, "room_id": rooms[i].ID})
	}

	logger.Info("job cancelled", "job_id", jobID, "rooms_archived", archived)
	return nil
}

func (s *jobService) AcceptProposal(ctx context.Context, jobID, customerID, roomID string) (*dto.JobResponse, error) {
	job, err := s.findOwnedJob(ctx, jobID, customerID)
	if err != nil {
		return nil, err
	}

	room, err := s.proposalRepo.FindByID(ctx, roomID)
	if err == repositories.ErrRoomNotFound {
		return nil, apperrors.NotFound("proposal")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if room.JobID != jobID {
		return nil, apperrors.ErrValidationFailed.WithMessage("Proposal does not belong to this job")
	}
	if room.IsArchived {
		return nil, apperrors.ErrRoomArchived
	}

	archived, err := s.jobRepo.Assign(ctx, jobID, room.TradespersonID)
	switch err {
	case nil:
	case repositories.ErrJobNotOpen:
		return nil, apperrors.ErrInvalidTransition.WithMessage("This job was just assigned to someone else")
	case repositories.ErrJobNotFound:
		return nil, apperrors.NotFound("job")
	default:
		return nil, apperrors.InternalError(err)
	}

	sysMsg := &models.Message{
		RoomID:  roomID,
		Type:    models.MessageTypeSystem,
		Content: "Proposal accepted. The job is now assigned.",
	}
	if err := s.proposalRepo.CreateMessage(ctx, sysMsg); err != nil {
		logger.Warn("system message failed", "room_id", roomID, "error", err)
	}

	notify(ctx, s.notifications, room.TradespersonID, "Proposal accepted",
		fmt.Sprintf("Your proposal for \"%s\" was accepted", job.Title),
		jobLink(jobID), &customerID, map[string]string{"job_id": jobID, "room_id": room.ID})

	logger.Info("proposal accepted", "job_id", jobID,
		"tradesperson_id", room.TradespersonID, "rooms_archived", archived)

	job, err = s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildJobResponse(job, customerID), nil
}

func (s *jobService) CreateDepositIntent(ctx context.Context, jobID, customerID string, amount float64) (*payments.Intent, error) {
	job, err := s.findOwnedJob(ctx, jobID, customerID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusAssigned {
		return nil, apperrors.ErrInvalidTransition.WithMessage("Deposit requires an assigned job")
	}
	if job.IsPaid {
		return nil, apperrors.ErrAlreadyPaid
	}
	return s.escrow.CreateDepositIntent(ctx, amount)
}

func (s *jobService) Deposit(ctx context.Context, jobID, customerID string, req *dto.DepositRequest) (*dto.TransactionResponse, error) {
	if _, err := s.findOwnedJob(ctx, jobID, customerID); err != nil {
		return nil, err
	}
	return s.escrow.RecordDeposit(ctx, jobID, customerID, req.Amount, req.ProcessorReference)
}

func (s *jobService) SubmitCompletionCode(ctx context.Context, jobID, tradespersonID, code string) error {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return apperrors.NotFound("job")
	}
	if err != nil {
		return apperrors.InternalError(err)
	}
	if job.AssignedTo == nil || *job.AssignedTo != tradespersonID {
		return apperrors.ErrForbidden.WithMessage("Only the assigned tradesperson can complete this job")
	}
	if !job.IsPaid {
		return apperrors.ErrInvalidTransition.WithMessage("The deposit has not been made yet")
	}

	if err := s.escrow.VerifyAndRelease(ctx, jobID, code); err != nil {
		return err
	}

	if room, rerr := s.proposalRepo.FindByJobAndTradesperson(ctx, jobID, tradespersonID); rerr == nil {
		sysMsg := &models.Message{
			RoomID:  room.ID,
			Type:    models.MessageTypeSystem,
			Content: "Job completed. Funds have been released.",
		}
		if err := s.proposalRepo.CreateMessage(ctx, sysMsg); err != nil {
			logger.Warn("system message failed", "room_id", room.ID, "error", err)
		}
	}

	notify(ctx, s.notifications, job.CustomerID, "Job completed",
		fmt.Sprintf("\"%s\" is done. Leave a review for your tradesperson.", job.Title),
		jobLink(jobID), &tradespersonID, map[string]string{"job_id": jobID})
	notify(ctx, s.notifications, tradespersonID, "Payment released",
		fmt.Sprintf("The funds for \"%s\" have been released. Leave a review for your customer.", job.Title),
		jobLink(jobID), nil, map[string]string{"job_id": jobID})

	s.sendReviewEmails(ctx, job, tradespersonID)
	return nil
}

// sendReviewEmails is best-effort: completion already happened, a bounced
// mail changes nothing.
func (s *jobService) sendReviewEmails(ctx context.Context, job *models.Job, tradespersonID string) {
	if s.mailer == nil {
		return
	}
	subject := fmt.Sprintf("How did \"%s\" go?", job.Title)
	body := fmt.Sprintf("The job \"%s\" is complete. Take a minute to review the other party.", job.Title)

	for _, id := range []string{job.CustomerID, tradespersonID} {
		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			logger.Warn("review email skipped", "user_id", id, "error", err)
			continue
		}
		if err := s.mailer.Send(user.Email, subject, body); err != nil {
			logger.Warn("review email failed", "user_id", id, "error", err)
		}
	}
}

func (s *jobService) findOwnedJob(ctx context.Context, jobID, customerID string) (*models.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return nil, apperrors.NotFound("job")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if job.CustomerID != customerID {
		return nil, apperrors.ErrForbidden
	}
	return job, nil
}

func buildJobResponses(jobs []models.Job, callerID string) []*dto.JobResponse {
	responses := make([]*dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, buildJobResponse(&jobs[i], callerID))
	}
	return responses
}

func buildJobResponse(job *models.Job, callerID string) *dto.JobResponse {
	resp := &dto.JobResponse{
		ID:          job.ID,
		CustomerID:  job.CustomerID,
		Title:       job.Title,
		Category:    job.Category,
		Description: job.Description,
		City:        job.City,
		Lat:         job.Lat,
		Lng:         job.Lng,
		Status:      job.Status,
		AssignedTo:  job.AssignedTo,
		IsPaid:      job.IsPaid,
		IsCompleted: job.IsCompleted,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	// The code is the customer's secret to hand over in person.
	if job.IsPaid && callerID == job.CustomerID {
		resp.CompletionCode = job.CompletionCode
	}
	return resp
}
