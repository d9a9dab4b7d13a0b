package handlers

import (
	"net/http"

	"kaamsetu_backend/internal/middleware"
	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/internal/services"
	"kaamsetu_backend/internal/services/dto"
	"kaamsetu_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobService    services.JobService
	escrowService services.EscrowService
}

func NewJobHandler(jobService services.JobService, escrowService services.EscrowService) *JobHandler {
	return &JobHandler{jobService: jobService, escrowService: escrowService}
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	jobs.Use(middleware.AuthMiddleware())
	{
		jobs.GET("/open", h.ListOpenJobs)
		jobs.GET("/mine", h.ListMyJobs)
		jobs.GET("/:jobId", h.GetJob)
	}

	customer := r.Group("/jobs")
	customer.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleCustomer, models.UserRoleAdmin))
	{
		customer.POST("", h.CreateJob)
		customer.PUT("/:jobId", h.UpdateJob)
		customer.POST("/:jobId/cancel", h.CancelJob)
		customer.POST("/:jobId/accept", h.AcceptProposal)
		customer.POST("/:jobId/deposit-intent", h.CreateDepositIntent)
		customer.POST("/:jobId/deposit", h.Deposit)
	}

	tradesperson := r.Group("/jobs")
	tradesperson.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleTradesperson))
	{
		tradesperson.POST("/:jobId/complete", h.SubmitCompletionCode)
	}

	admin := r.Group("/admin/jobs")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.POST("/:jobId/refund", h.Refund)
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	resp, err := h.jobService.CreateJob(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	resp, err := h.jobService.UpdateJob(c.Request.Context(), c.Param("jobId"), currentUserID(c), &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	resp, err := h.jobService.GetJob(c.Request.Context(), c.Param("jobId"), currentUserID(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) ListOpenJobs(c *gin.Context) {
	resp, err := h.jobService.ListOpenJobs(c.Request.Context(), c.Query("city"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) ListMyJobs(c *gin.Context) {
	resp, err := h.jobService.ListMyJobs(c.Request.Context(), currentUserID(c), currentRole(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	if err := h.jobService.CancelJob(c.Request.Context(), c.Param("jobId"), currentUserID(c)); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *JobHandler) AcceptProposal(c *gin.Context) {
	var req dto.AcceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	resp, err := h.jobService.AcceptProposal(c.Request.Context(), c.Param("jobId"), currentUserID(c), req.RoomID)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) CreateDepositIntent(c *gin.Context) {
	var req dto.DepositIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	intent, err := h.jobService.CreateDepositIntent(c.Request.Context(), c.Param("jobId"), currentUserID(c), req.Amount)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"client_secret": intent.ClientSecret,
		"reference":     intent.Reference,
	})
}

func (h *JobHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	resp, err := h.jobService.Deposit(c.Request.Context(), c.Param("jobId"), currentUserID(c), &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) SubmitCompletionCode(c *gin.Context) {
	var req dto.CompleteJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	err := h.jobService.SubmitCompletionCode(c.Request.Context(), c.Param("jobId"), currentUserID(c), req.Code)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (h *JobHandler) Refund(c *gin.Context) {
	if err := h.escrowService.Refund(c.Request.Context(), c.Param("jobId")); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}
