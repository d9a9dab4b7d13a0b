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

type ProposalHandler struct {
	proposalService services.ProposalService
}

func NewProposalHandler(proposalService services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService}
}

func (h *ProposalHandler) RegisterRoutes(r *gin.RouterGroup) {
	open := r.Group("/jobs/:jobId/proposals")
	open.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleTradesperson))
	{
		open.POST("", h.OpenProposal)
	}

	list := r.Group("/jobs/:jobId/proposals")
	list.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleCustomer, models.UserRoleAdmin))
	{
		list.GET("", h.ListProposalsForJob)
	}

	rooms := r.Group("/proposals/:roomId")
	rooms.Use(middleware.AuthMiddleware())
	{
		rooms.GET("/messages", h.ListMessages)
		rooms.POST("/messages", h.PostMessage)
	}
}

func (h *ProposalHandler) OpenProposal(c *gin.Context) {
	resp, err := h.proposalService.OpenProposal(c.Request.Context(), c.Param("jobId"), currentUserID(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProposalHandler) ListProposalsForJob(c *gin.Context) {
	resp, err := h.proposalService.ListProposalsForJob(c.Request.Context(), c.Param("jobId"), currentUserID(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProposalHandler) PostMessage(c *gin.Context) {
	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	resp, err := h.proposalService.PostMessage(c.Request.Context(), c.Param("roomId"), currentUserID(c), &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProposalHandler) ListMessages(c *gin.Context) {
	resp, err := h.proposalService.ListMessages(c.Request.Context(), c.Param("roomId"), currentUserID(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
