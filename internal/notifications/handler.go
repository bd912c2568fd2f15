package notifications

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"certshield/coi-backend/pkg/apperrors"
)

type Handler struct {
	service        Service
	callbackSecret string
}

func NewHandler(service Service, callbackSecret string) *Handler {
	return &Handler{service: service, callbackSecret: callbackSecret}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	comms := rg.Group("/communications")
	{
		comms.GET("", h.List)
	}
}

// RegisterCallbackRoutes wires the provider webhook outside the JWT-guarded
// group; providers authenticate with the shared callback token instead.
func (h *Handler) RegisterCallbackRoutes(r *gin.Engine) {
	r.POST("/callbacks/delivery", h.DeliveryCallback)
}

func (h *Handler) List(c *gin.Context) {
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
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	comms, err := h.service.ListByAssignment(c.Request.Context(), projectID, subcontractorID, limit)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"communications": comms, "count": len(comms)})
}

type deliveryCallbackBody struct {
	CommunicationID uuid.UUID  `json:"communication_id"`
	Status          CommStatus `json:"status"`
	Timestamp       *time.Time `json:"timestamp"`
}

func (h *Handler) DeliveryCallback(c *gin.Context) {
	token := c.GetHeader("X-Callback-Token")
	if h.callbackSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid callback token"})
		return
	}

	var body deliveryCallbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.CommunicationID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "communication_id is required"})
		return
	}

	timestamp := time.Now()
	if body.Timestamp != nil {
		timestamp = *body.Timestamp
	}

	if err := h.service.ApplyDeliveryEvent(c.Request.Context(), body.CommunicationID, body.Status, timestamp); err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "accepted"})
}
