package compliance

import (
	"net/http"
	"strings"
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
	assignments := rg.Group("/assignments")
	{
		assignments.GET("", h.List)
		assignments.GET("/status", h.GetStatus)
		assignments.POST("/recompute", h.Recompute)
		assignments.PUT("/on-site-date", auth.RequireRole(auth.RoleProjectManager), h.SetOnSiteDate)
	}
}

func (h *Handler) List(c *gin.Context) {
	var statuses []Status
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := Status(strings.TrimSpace(s))
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(status)})
				return
			}
			statuses = append(statuses, status)
		}
	}

	assignments, err := h.service.ListAssignments(c.Request.Context(), auth.CompanyID(c), statuses)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments, "count": len(assignments)})
}

func (h *Handler) GetStatus(c *gin.Context) {
	projectID, subcontractorID, ok := assignmentPair(c)
	if !ok {
		return
	}

	assignment, err := h.service.GetAssignment(c.Request.Context(), projectID, subcontractorID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (h *Handler) Recompute(c *gin.Context) {
	var body struct {
		ProjectID       uuid.UUID `json:"project_id"`
		SubcontractorID uuid.UUID `json:"subcontractor_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actorID := auth.UserID(c)
	status, err := h.service.Recompute(c.Request.Context(), auth.CompanyID(c), body.ProjectID, body.SubcontractorID, &actorID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) SetOnSiteDate(c *gin.Context) {
	var body struct {
		ProjectID       uuid.UUID `json:"project_id"`
		SubcontractorID uuid.UUID `json:"subcontractor_id"`
		OnSiteDate      *string   `json:"on_site_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var onSiteDate *time.Time
	if body.OnSiteDate != nil {
		parsed, err := time.Parse("2006-01-02", *body.OnSiteDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "on_site_date must be YYYY-MM-DD"})
			return
		}
		onSiteDate = &parsed
	}

	if err := h.service.SetOnSiteDate(c.Request.Context(), body.ProjectID, body.SubcontractorID, onSiteDate, auth.UserID(c)); err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "on-site date updated"})
}

func assignmentPair(c *gin.Context) (projectID, subcontractorID uuid.UUID, ok bool) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return uuid.Nil, uuid.Nil, false
	}
	subcontractorID, err = uuid.Parse(c.Query("subcontractor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subcontractor_id is required"})
		return uuid.Nil, uuid.Nil, false
	}
	return projectID, subcontractorID, true
}
