package services

import (
	"context"
	"fmt"

	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/internal/repositories"
	"kaamsetu_backend/internal/services/dto"
	"kaamsetu_backend/pkg/apperrors"
)

// ProposalService manages the per-(job, tradesperson) chat rooms. A room
// doubles as the proposal itself: opening it is the act of proposing.
type ProposalService interface {
	// OpenProposal returns the caller's existing room for the job or
	// creates one. At most one room per (job, tradesperson) pair exists.
	OpenProposal(ctx context.Context, jobID, tradespersonID string) (*dto.ProposalResponse, error)

	PostMessage(ctx context.Context, roomID, senderID string, req *dto.PostMessageRequest) (*dto.MessageResponse, error)
	ListProposalsForJob(ctx context.Context, jobID, callerID string) ([]*dto.ProposalResponse, error)
	ListMessages(ctx context.Context, roomID, callerID string) ([]*dto.MessageResponse, error)
}

type proposalService struct {
	proposalRepo  repositories.ProposalRepository
	jobRepo       repositories.JobRepository
	userRepo      repositories.UserRepository
	notifications NotificationService
}

func NewProposalService(
	proposalRepo repositories.ProposalRepository,
	jobRepo repositories.JobRepository,
	userRepo repositories.UserRepository,
	notifications NotificationService,
) ProposalService {
	return &proposalService{
		proposalRepo:  proposalRepo,
		jobRepo:       jobRepo,
		userRepo:      userRepo,
		notifications: notifications,
	}
}

func (s *proposalService) OpenProposal(ctx context.Context, jobID, tradespersonID string) (*dto.ProposalResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return nil, apperrors.NotFound("job")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if job.CustomerID == tradespersonID {
		return nil, apperrors.ErrForbidden.WithMessage("You cannot propose on your own job")
	}

	// Re-opening your own room is always allowed while the job lives;
	// proposing fresh is not once the job has closed or gone to someone
	// else.
	if room, err := s.proposalRepo.FindByJobAndTradesperson(ctx, jobID, tradespersonID); err == nil {
		return buildProposalResponse(room), nil
	} else if err != repositories.ErrRoomNotFound {
		return nil, apperrors.InternalError(err)
	}

	switch job.Status {
	case models.JobStatusOpen:
	case models.JobStatusAssigned, models.JobStatusInProgress:
		return nil, apperrors.ErrJobClosed.WithMessage("This job has already been assigned")
	default:
		return nil, apperrors.ErrJobClosed
	}

	room := &models.ChatRoom{
		JobID:          jobID,
		CustomerID:     job.CustomerID,
		TradespersonID: tradespersonID,
	}
	if err := s.proposalRepo.Create(ctx, room); err != nil {
		// Unique (job_id, tradesperson_id) index: a concurrent open won the
		// insert, reuse its row.
		if existing, ferr := s.proposalRepo.FindByJobAndTradesperson(ctx, jobID, tradespersonID); ferr == nil {
			return buildProposalResponse(existing), nil
		}
		return nil, apperrors.InternalError(err)
	}

	notify(ctx, s.notifications, job.CustomerID, "New proposal",
		fmt.Sprintf("You have a new proposal for \"%s\"", job.Title),
		jobLink(jobID), &tradespersonID, map[string]string{"job_id": jobID, "room_id": room.ID})

	return buildProposalResponse(room), nil
}

func (s *proposalService) PostMessage(ctx context.Context, roomID, senderID string, req *dto.PostMessageRequest) (*dto.MessageResponse, error) {
	room, err := s.proposalRepo.FindByID(ctx, roomID)
	if err == repositories.ErrRoomNotFound {
		return nil, apperrors.NotFound("proposal")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if senderID != room.CustomerID && senderID != room.TradespersonID {
		return nil, apperrors.ErrForbidden
	}
	if room.IsArchived {
		return nil, apperrors.ErrRoomArchived
	}

	job, err := s.jobRepo.FindByID(ctx, room.JobID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusCancelled {
		return nil, apperrors.ErrJobClosed.WithMessage("This job is closed")
	}

	msg := &models.Message{
		RoomID:   roomID,
		SenderID: &senderID,
		Type:     models.MessageTypeText,
		Content:  req.Content,
	}
	if err := s.proposalRepo.CreateMessage(ctx, msg); err != nil {
		return nil, apperrors.InternalError(err)
	}

	recipientID := room.CustomerID
	if senderID == room.CustomerID {
		recipientID = room.TradespersonID
	}
	notify(ctx, s.notifications, recipientID, "New message",
		fmt.Sprintf("New message about \"%s\"", job.Title),
		jobLink(room.JobID), &senderID, map[string]string{"job_id": room.JobID, "room_id": roomID})

	return buildMessageResponse(msg), nil
}

func (s *proposalService) ListProposalsForJob(ctx context.Context, jobID, callerID string) ([]*dto.ProposalResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err == repositories.ErrJobNotFound {
		return nil, apperrors.NotFound("job")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if job.CustomerID != callerID {
		return nil, apperrors.ErrForbidden
	}

	rooms, err := s.proposalRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	responses := make([]*dto.ProposalResponse, 0, len(rooms))
	for i := range rooms {
		responses = append(responses, buildProposalResponse(&rooms[i]))
	}
	return responses, nil
}

func (s *proposalService) ListMessages(ctx context.Context, roomID, callerID string) ([]*dto.MessageResponse, error) {
	room, err := s.proposalRepo.FindByID(ctx, roomID)
	if err == repositories.ErrRoomNotFound {
		return nil, apperrors.NotFound("proposal")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if callerID != room.CustomerID && callerID != room.TradespersonID {
		return nil, apperrors.ErrForbidden
	}

	messages, err := s.proposalRepo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	responses := make([]*dto.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, buildMessageResponse(&messages[i]))
	}
	return responses, nil
}

func buildProposalResponse(room *models.ChatRoom) *dto.ProposalResponse {
	return &dto.ProposalResponse{
		ID:             room.ID,
		JobID:          room.JobID,
		CustomerID:     room.CustomerID,
		TradespersonID: room.TradespersonID,
		IsArchived:     room.IsArchived,
		CreatedAt:      room.CreatedAt,
	}
}

func buildMessageResponse(msg *models.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		ID:            msg.ID,
		RoomID:        msg.RoomID,
		SenderID:      msg.SenderID,
		Type:          msg.Type,
		Content:       msg.Content,
		Price:         msg.Price,
		AppointmentAt: msg.AppointmentAt,
		CreatedAt:     msg.CreatedAt,
	}
}
