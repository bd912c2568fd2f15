package escalation

import (
	"net/http"

	"github.com/gin-gonic/gin"

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
	escalations := rg.Group("/escalations")
	{
		escalations.POST("/sweep", auth.RequireRole(auth.RoleProjectManager), h.Sweep)
	}
}

// Sweep triggers an on-demand escalation pass for the caller's company.
// With preview=true the response shows what would be sent without sending.
func (h *Handler) Sweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.CompanyID = auth.CompanyID(c)
	if c.Query("preview") == "true" {
		req.Preview = true
	}

	result, err := h.service.RunSweep(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, result)
}
