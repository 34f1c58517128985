package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ChetanXpro/yesbroker/internal/service"
)

// InterestHandler serves renter interest endpoints.
type InterestHandler struct {
	Interests *service.InterestService
}

func NewInterestHandler(interests *service.InterestService) *InterestHandler {
	return &InterestHandler{Interests: interests}
}

// List handles GET /property-interests[?property_id].
func (h *InterestHandler) List(c *gin.Context) {
	var propertyID *int64
	if raw := strings.TrimSpace(c.Query("property_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid property_id")
			return
		}
		propertyID = &id
	}

	list, err := h.Interests.List(c.Request.Context(), claimsOrNil(c), propertyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list.Data(), "count": list.Count()})
}

// Create handles POST /property-interests.
func (h *InterestHandler) Create(c *gin.Context) {
	var req struct {
		PropertyID int64 `json:"property_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Property ID is required")
		return
	}

	interest, err := h.Interests.Record(c.Request.Context(), claimsOrNil(c), req.PropertyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    interest,
		"message": "Interest recorded successfully",
	})
}

// Delete handles DELETE /property-interests/:id.
func (h *InterestHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid interest ID")
		return
	}
	if err := h.Interests.Withdraw(c.Request.Context(), claimsOrNil(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Interest removed successfully"})
}
