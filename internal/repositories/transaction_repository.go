package repositories

import (
	"context"
	"errors"

	"kaamsetu_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

type TransactionRepository interface {
	Create(ctx context.Context, tr *models.Transaction) error
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
	FindSuccessfulByJob(ctx context.Context, jobID string) (*models.Transaction, error)
	ListByJob(ctx context.Context, jobID string) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tr *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tr).Error
}

func (r *transactionRepository) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tr models.Transaction
	err := r.db.WithContext(ctx).First(&tr, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func (r *transactionRepository) FindSuccessfulByJob(ctx context.Context, jobID string) (*models.Transaction, error) {
	var tr models.Transaction
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND status = ?", jobID, models.TransactionStatusSuccess).
		Order("created_at DESC").
		First(&tr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func (r *transactionRepository) ListByJob(ctx context.Context, jobID string) ([]models.Transaction, error) {
	var trs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&trs).Error
	if err != nil {
		return nil, err
	}
	return trs, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
