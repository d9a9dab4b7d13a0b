package repositories

import (
	"context"
	"errors"

	"kaamsetu_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrRoomNotFound = errors.New("chat room not found")
)

type ProposalRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) error
	FindByID(ctx context.Context, id string) (*models.ChatRoom, error)
	FindByJobAndTradesperson(ctx context.Context, jobID, tradespersonID string) (*models.ChatRoom, error)
	ListByJob(ctx context.Context, jobID string) ([]models.ChatRoom, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

type proposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *proposalRepository) FindByID(ctx context.Context, id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *proposalRepository) FindByJobAndTradesperson(ctx context.Context, jobID, tradespersonID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		First(&room, "job_id = ? AND tradesperson_id = ?", jobID, tradespersonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *proposalRepository) ListByJob(ctx context.Context, jobID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *proposalRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *proposalRepository) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
