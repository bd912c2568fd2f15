package reports

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"certshield/coi-backend/internal/auth"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/pkg/apperrors"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/compliance.xlsx", h.ComplianceXLSX)
		reports.GET("/compliance", h.ComplianceJSON)
	}
}

func (h *Handler) ComplianceXLSX(c *gin.Context) {
	rows, ok := h.loadRows(c)
	if !ok {
		return
	}

	now := time.Now()
	buf, err := ExportXLSX(rows, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate report"})
		return
	}

	filename := fmt.Sprintf("compliance-report-%s.xlsx", now.Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) ComplianceJSON(c *gin.Context) {
	rows, ok := h.loadRows(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

func (h *Handler) loadRows(c *gin.Context) ([]Row, bool) {
	var statuses []compliance.Status
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := compliance.Status(strings.TrimSpace(s))
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(status)})
				return nil, false
			}
			statuses = append(statuses, status)
		}
	}

	rows, err := h.service.ComplianceRows(c.Request.Context(), auth.CompanyID(c), statuses)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return nil, false
	}
	return rows, true
}
