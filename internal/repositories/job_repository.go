package repositories

import (
	"context"
	"errors"
	"time"

	"kaamsetu_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobNotOpen     = errors.New("job is not open")
	ErrJobNotAssigned = errors.New("job is not assigned")
	ErrJobAlreadyPaid = errors.New("job is already paid")
)

// JobRepository owns every write to Job.status and its companion fields.
// All transitions are conditional updates keyed on the current status, so
// concurrent callers serialize at the store: the loser of a race sees zero
// rows affected and gets the matching sentinel error.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id string) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	ListOpen(ctx context.Context, city string) ([]models.Job, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Job, error)
	ListByTradesperson(ctx context.Context, tradespersonID string) ([]models.Job, error)
	ListUnpaidAssigned(ctx context.Context, assignedBefore time.Time) ([]models.Job, error)

	// Assign moves the job open -> assigned and archives every competing
	// room in the same database transaction. Returns the number of rooms
	// archived, or ErrJobNotOpen when another accept already won.
	Assign(ctx context.Context, jobID, tradespersonID string) (int64, error)

	// Cancel moves the job open -> cancelled and archives all of its rooms
	// atomically.
	Cancel(ctx context.Context, jobID string) (int64, error)

	// MarkPaidAndRecord flips is_paid, installs a freshly minted completion
	// code and inserts the escrow transaction in one database transaction,
	// conditional on the job being assigned and unpaid. Either both writes
	// land or neither does; a paid job therefore always has a ledger row.
	MarkPaidAndRecord(ctx context.Context, jobID, completionCode string, tr *models.Transaction) error

	// Complete moves assigned/in_progress -> completed and flips
	// is_completed. Completed is terminal; a second call fails.
	Complete(ctx context.Context, jobID string) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Update(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *jobRepository) ListOpen(ctx context.Context, city string) ([]models.Job, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", models.JobStatusOpen).
		Order("created_at DESC")
	if city != "" {
		query = query.Where("city = ?", city)
	}

	var jobs []models.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) ListByTradesperson(ctx context.Context, tradespersonID string) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("assigned_to = ?", tradespersonID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) ListUnpaidAssigned(ctx context.Context, assignedBefore time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_paid = false AND updated_at < ?", models.JobStatusAssigned, assignedBefore).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) Assign(ctx context.Context, jobID, tradespersonID string) (int64, error) {
	var archived int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusOpen).
			Updates(map[string]interface{}{
				"status":      models.JobStatusAssigned,
				"assigned_to": tradespersonID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either the job does not exist or it already left "open".
			var count int64
			if err := tx.Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrJobNotFound
			}
			return ErrJobNotOpen
		}

		res = tx.Model(&models.ChatRoom{}).
			Where("job_id = ? AND tradesperson_id <> ? AND is_archived = false", jobID, tradespersonID).
			Update("is_archived", true)
		if res.Error != nil {
			return res.Error
		}
		archived = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return archived, nil
}

func (r *jobRepository) Cancel(ctx context.Context, jobID string) (int64, error) {
	var archived int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusOpen).
			Update("status", models.JobStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrJobNotFound
			}
			return ErrJobNotOpen
		}

		res = tx.Model(&models.ChatRoom{}).
			Where("job_id = ? AND is_archived = false", jobID).
			Update("is_archived", true)
		if res.Error != nil {
			return res.Error
		}
		archived = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return archived, nil
}

func (r *jobRepository) MarkPaidAndRecord(ctx context.Context, jobID, completionCode string, tr *models.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ? AND is_paid = false", jobID, models.JobStatusAssigned).
			Updates(map[string]interface{}{
				"is_paid":         true,
				"completion_code": completionCode,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var job models.Job
			err := tx.First(&job, "id = ?", jobID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			if err != nil {
				return err
			}
			if job.IsPaid {
				return ErrJobAlreadyPaid
			}
			return ErrJobNotAssigned
		}

		return tx.Create(tr).Error
	})
}

func (r *jobRepository) Complete(ctx context.Context, jobID string) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status IN ?", jobID,
			[]models.JobStatus{models.JobStatusAssigned, models.JobStatusInProgress}).
		Updates(map[string]interface{}{
			"status":       models.JobStatusCompleted,
			"is_completed": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrJobNotFound
		}
		return ErrJobNotAssigned
	}
	return nil
}
