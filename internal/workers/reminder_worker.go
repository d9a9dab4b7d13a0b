package workers

import (
	"context"
	"fmt"
	"time"

	"kaamsetu_backend/internal/logger"
	"kaamsetu_backend/internal/repositories"
	"kaamsetu_backend/internal/services"
)

// ReminderWorker nudges customers whose assigned jobs have gone unpaid
// for too long. The escrow deposit is what protects both sides, so an
// assigned-but-unfunded job is a stalled job.
type ReminderWorker struct {
	jobRepo       repositories.JobRepository
	notifications services.NotificationService
	after         time.Duration
	interval      time.Duration
}

func NewReminderWorker(jobRepo repositories.JobRepository, notifications services.NotificationService, afterHours int) *ReminderWorker {
	return &ReminderWorker{
		jobRepo:       jobRepo,
		notifications: notifications,
		after:         time.Duration(afterHours) * time.Hour,
		interval:      1 * time.Hour,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *ReminderWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.remindUnpaid(ctx)
		}
	}
}

func (w *ReminderWorker) remindUnpaid(ctx context.Context) {
	jobs, err := w.jobRepo.ListUnpaidAssigned(ctx, time.Now().Add(-w.after))
	if err != nil {
		logger.Error("unpaid job scan failed", "error", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]
		if err := w.notifications.Enqueue(ctx, job.CustomerID, "Deposit pending",
			fmt.Sprintf("\"%s\" is assigned but escrow has not been funded yet. Make the deposit so work can start.", job.Title),
			jobLink(job.ID), nil, map[string]string{"job_id": job.ID}); err != nil {
			logger.Warn("reminder enqueue failed", "job_id", job.ID, "error", err)
		}
	}

	if len(jobs) > 0 {
		logger.Info("unpaid reminders sent", "count", len(jobs))
	}
}

func jobLink(jobID string) *string {
	link := "/jobs/" + jobID
	return &link
}
