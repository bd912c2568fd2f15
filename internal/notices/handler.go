package notices

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/verification"
	"certshield/coi-backend/pkg/apperrors"
)

type Handler struct {
	assignments compliance.Repository
	verdicts    verification.Repository
}

func NewHandler(assignments compliance.Repository, verdicts verification.Repository) *Handler {
	return &Handler{assignments: assignments, verdicts: verdicts}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notices := rg.Group("/notices")
	{
		notices.GET("/stop-work.pdf", h.StopWork)
	}
}

func (h *Handler) StopWork(c *gin.Context) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}
	subcontractorID, err := uuid.Parse(c.Query("subcontractor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subcontractor_id is required"})
		return
	}

	ctx := c.Request.Context()
	assignment, err := h.assignments.GetAssignment(ctx, projectID, subcontractorID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	if assignment.Status == compliance.StatusCompliant || assignment.Status == compliance.StatusException {
		c.JSON(http.StatusConflict, gin.H{"error": "assignment is not out of compliance"})
		return
	}

	project, err := h.assignments.GetProject(ctx, projectID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	sub, err := h.assignments.GetSubcontractor(ctx, subcontractorID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	verdict, err := h.verdicts.Latest(ctx, projectID, subcontractorID)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}

	buf, err := GenerateStopWork(StopWorkInput{
		Project:       project,
		Subcontractor: sub,
		Assignment:    assignment,
		Verdict:       verdict,
		GeneratedAt:   time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate notice"})
		return
	}

	filename := fmt.Sprintf("stop-work-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
