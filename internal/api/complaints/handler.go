// Package complaints provides REST API handlers for the complaint
// platform. It is a thin adapter: every rule lives in the lifecycle
// service, the handlers only translate HTTP to service calls and
// typed errors to status codes.
package complaints

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusvoice/campus-voice/internal/models"
	"github.com/campusvoice/campus-voice/internal/service/lifecycle"
	"github.com/campusvoice/campus-voice/pkg/logger"
)

// LifecycleService interface for complaint lifecycle operations.
type LifecycleService interface {
	SubmitComplaint(ctx context.Context, in lifecycle.SubmitInput) (*models.Complaint, error)
	InvestPoints(ctx context.Context, userID, complaintID string, amount int, idempotencyKey string) (*lifecycle.InvestResult, error)
	ChangeStatus(ctx context.Context, complaintID string, action models.Action, callerRole models.Role) (*models.Complaint, error)
	PostReply(ctx context.Context, complaintID string, author lifecycle.ReplyAuthor, content string) (*models.Reply, error)
	UpvoteReply(ctx context.Context, complaintID, replyID string) (*models.Reply, error)
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, sortBy string) ([]models.Complaint, error)
	Authenticate(ctx context.Context, identifier, secret string) (*models.UserAccount, error)
	GetAccount(ctx context.Context, uid string) (*models.UserAccount, error)
	Register(ctx context.Context, in lifecycle.RegisterInput) (*models.UserAccount, error)
	ResetSemesterBudgets(ctx context.Context, budget int) error
}

// Handler handles complaint API requests.
type Handler struct {
	service LifecycleService
	log     *logger.Logger
}

// NewHandler creates a new complaints handler.
func NewHandler(service *lifecycle.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// NewHandlerWithInterfaces creates a new complaints handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(service LifecycleService, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes mounts the API routes on the router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Login)
		v1.POST("/auth/register", h.Register)
		v1.GET("/users/:uid", h.GetAccount)

		v1.GET("/complaints", h.ListComplaints)
		v1.POST("/complaints", h.SubmitComplaint)
		v1.GET("/complaints/:id", h.GetComplaint)
		v1.POST("/complaints/:id/invest", h.InvestPoints)
		v1.POST("/complaints/:id/status", h.ChangeStatus)
		v1.POST("/complaints/:id/replies", h.PostReply)
		v1.POST("/complaints/:id/replies/:replyId/upvote", h.UpvoteReply)

		v1.POST("/admin/reset-budgets", h.ResetBudgets)
	}
}

type submitRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Hashtags     []string `json:"hashtags"`
	AuthorName   string   `json:"author_name"`
	AuthorYear   string   `json:"author_year"`
	AuthorBranch string   `json:"author_branch"`
}

// SubmitComplaint creates a new complaint.
// POST /api/v1/complaints.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.service.SubmitComplaint(c.Request.Context(), lifecycle.SubmitInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Hashtags:     req.Hashtags,
		AuthorName:   req.AuthorName,
		AuthorYear:   req.AuthorYear,
		AuthorBranch: req.AuthorBranch,
	})
	if err != nil {
		h.serviceError(c, err, "Failed to submit complaint")
		return
	}

	c.JSON(http.StatusCreated, complaint)
}

// ListComplaints returns all complaints.
// GET /api/v1/complaints?sort=date|points.
func (h *Handler) ListComplaints(c *gin.Context) {
	sortBy := c.DefaultQuery("sort", "date")

	complaints, err := h.service.ListComplaints(c.Request.Context(), sortBy)
	if err != nil {
		h.serviceError(c, err, "Failed to list complaints")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaints": complaints,
		"total":      len(complaints),
	})
}

// GetComplaint returns one complaint with its merged timeline.
// GET /api/v1/complaints/:id.
func (h *Handler) GetComplaint(c *gin.Context) {
	complaint, err := h.service.GetComplaint(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to get complaint")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaint": complaint,
		"timeline":  lifecycle.Timeline(complaint),
	})
}

type investRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Amount         int    `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

// InvestPoints transfers priority points to a complaint.
// POST /api/v1/complaints/:id/invest.
func (h *Handler) InvestPoints(c *gin.Context) {
	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.InvestPoints(c.Request.Context(), req.UserID, c.Param("id"), req.Amount, req.IdempotencyKey)
	if err != nil {
		h.serviceError(c, err, "Failed to invest points")
		return
	}

	c.JSON(http.StatusOK, result)
}

type statusRequest struct {
	Action     string `json:"action" binding:"required"`
	CallerRole string `json:"caller_role" binding:"required"`
}

// ChangeStatus performs a lifecycle action on a complaint.
// POST /api/v1/complaints/:id/status.
func (h *Handler) ChangeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	complaint, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"),
		models.Action(req.Action), models.Role(req.CallerRole))
	if err != nil {
		h.serviceError(c, err, "Failed to change status")
		return
	}

	c.JSON(http.StatusOK, complaint)
}

type replyRequest struct {
	AuthorName string `json:"author_name" binding:"required"`
	AuthorIsOP bool   `json:"author_is_op"`
	AuthorPost string `json:"author_post"`
	Content    string `json:"content" binding:"required"`
}

// PostReply appends a discussion reply.
// POST /api/v1/complaints/:id/replies.
func (h *Handler) PostReply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.service.PostReply(c.Request.Context(), c.Param("id"), lifecycle.ReplyAuthor{
		Name: req.AuthorName,
		IsOP: req.AuthorIsOP,
		Post: req.AuthorPost,
	}, req.Content)
	if err != nil {
		h.serviceError(c, err, "Failed to post reply")
		return
	}

	c.JSON(http.StatusCreated, reply)
}

// UpvoteReply increments a reply's upvote counter.
// POST /api/v1/complaints/:id/replies/:replyId/upvote.
func (h *Handler) UpvoteReply(c *gin.Context) {
	reply, err := h.service.UpvoteReply(c.Request.Context(), c.Param("id"), c.Param("replyId"))
	if err != nil {
		h.serviceError(c, err, "Failed to upvote reply")
		return
	}

	c.JSON(http.StatusOK, reply)
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// Login authenticates an account by email or student ID.
// POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), req.Identifier, req.Secret)
	if err != nil {
		h.serviceError(c, err, "Authentication failed")
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetAccount returns an account with its remaining balance.
// GET /api/v1/users/:uid.
func (h *Handler) GetAccount(c *gin.Context) {
	user, err := h.service.GetAccount(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.serviceError(c, err, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, user)
}

type registerRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
	Role       string `json:"role" binding:"required"`
	FullName   string `json:"full_name"`
	Post       string `json:"post"`
}

// Register provisions a new account.
// POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Register(c.Request.Context(), lifecycle.RegisterInput{
		Identifier: req.Identifier,
		Secret:     req.Secret,
		Role:       models.Role(req.Role),
		FullName:   req.FullName,
		Post:       req.Post,
	})
	if err != nil {
		h.serviceError(c, err, "Failed to register account")
		return
	}

	c.JSON(http.StatusCreated, user)
}

type resetRequest struct {
	Budget int `json:"budget" binding:"required"`
}

// ResetBudgets restores every student balance to the given budget.
// POST /api/v1/admin/reset-budgets.
func (h *Handler) ResetBudgets(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.ResetSemesterBudgets(c.Request.Context(), req.Budget); err != nil {
		h.serviceError(c, err, "Failed to reset budgets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": req.Budget})
}

// serviceError maps the business error taxonomy to HTTP status codes.
func (h *Handler) serviceError(c *gin.Context, err error, msg string) {
	switch {
	case models.IsNotFound(err):
		h.errorResponse(c, http.StatusNotFound, err.Error())
	case models.IsDuplicate(err) || errors.Is(err, models.ErrDuplicateInvestment):
		h.errorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrAuthenticationFailed):
		h.errorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		h.errorResponse(c, http.StatusForbidden, err.Error())
	case models.IsValidation(err):
		h.errorResponse(c, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg(msg)
		h.errorResponse(c, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
