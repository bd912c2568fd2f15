package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"certshield/coi-backend/internal/auth"
	"certshield/coi-backend/pkg/apperrors"
)

type Handler struct {
	recorder Recorder
}

func NewHandler(recorder Recorder) *Handler {
	return &Handler{recorder: recorder}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	audit := rg.Group("/audit")
	{
		audit.GET("", h.List)
	}
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.recorder.List(c.Request.Context(), auth.CompanyID(c),
		c.Query("entity_type"), c.Query("entity_id"), limit)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
