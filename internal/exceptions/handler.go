package exceptions

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"certshield/coi-backend/internal/auth"
	"certshield/coi-backend/pkg/apperrors"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	exceptions := rg.Group("/exceptions")
	{
		exceptions.POST("", h.Create)
		exceptions.GET("", h.List)
		exceptions.GET("/:id", h.Get)
		exceptions.POST("/:id/approve", auth.RequireRole(auth.RoleProjectManager), h.Approve)
		exceptions.POST("/:id/reject", auth.RequireRole(auth.RoleProjectManager), h.Reject)
		exceptions.POST("/:id/resolve", h.Resolve)
		exceptions.POST("/:id/close", h.Close)
	}
}

type createBody struct {
	ProjectID       uuid.UUID      `json:"project_id"`
	SubcontractorID uuid.UUID      `json:"subcontractor_id"`
	VerificationID  *uuid.UUID     `json:"verification_id"`
	IssueSummary    string         `json:"issue_summary"`
	Reason          string         `json:"reason"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	ExpirationType  ExpirationType `json:"expiration_type"`
	ExpiresAt       *time.Time     `json:"expires_at"`
	AutoApprove     bool           `json:"auto_approve"`
}

func (h *Handler) Create(c *gin.Context) {
	var body createBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	exception, err := h.service.Create(c.Request.Context(), CreateRequest{
		CompanyID:       auth.CompanyID(c),
		ProjectID:       body.ProjectID,
		SubcontractorID: body.SubcontractorID,
		VerificationID:  body.VerificationID,
		IssueSummary:    body.IssueSummary,
		Reason:          body.Reason,
		RiskLevel:       body.RiskLevel,
		ExpirationType:  body.ExpirationType,
		ExpiresAt:       body.ExpiresAt,
		AutoApprove:     body.AutoApprove,
		ActorID:         auth.UserID(c),
		ActorCanApprove: auth.CanApprove(auth.Role(c)),
	})
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusCreated, exception)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	exception, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, exception)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	exceptions, err := h.service.List(c.Request.Context(), auth.CompanyID(c), limit)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exceptions": exceptions, "count": len(exceptions)})
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	exception, err := h.service.Approve(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, exception)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	exception, err := h.service.Reject(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, exception)
}

func (h *Handler) Resolve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		ResolutionType  string `json:"resolution_type"`
		ResolutionNotes string `json:"resolution_notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	exception, err := h.service.Resolve(c.Request.Context(), id, body.ResolutionType, body.ResolutionNotes, auth.UserID(c))
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, exception)
}

func (h *Handler) Close(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	exception, err := h.service.Close(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, exception)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exception id"})
		return uuid.Nil, false
	}
	return id, true
}
