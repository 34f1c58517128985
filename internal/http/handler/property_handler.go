package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

// PropertyHandler serves listing CRUD and image management.
type PropertyHandler struct {
	Properties *service.PropertyService
}

func NewPropertyHandler(properties *service.PropertyService) *PropertyHandler {
	return &PropertyHandler{Properties: properties}
}

// List handles GET /properties?owner_id&status&city.
func (h *PropertyHandler) List(c *gin.Context) {
	var filter domain.PropertyFilter
	if raw := strings.TrimSpace(c.Query("owner_id")); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid owner_id")
			return
		}
		filter.OwnerID = &ownerID
	}
	filter.Status = strings.TrimSpace(c.Query("status"))
	filter.City = strings.TrimSpace(c.Query("city"))

	properties, err := h.Properties.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": properties, "count": len(properties)})
}

// Get handles GET /properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}
	property, err := h.Properties.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": property})
}

// Create handles POST /properties.
func (h *PropertyHandler) Create(c *gin.Context) {
	var in service.CreatePropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	property, err := h.Properties.Create(c.Request.Context(), claimsOrNil(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    property,
		"message": "Property created successfully",
	})
}

// Update handles PUT /properties/:id.
func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}
	var patch domain.PropertyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	property, err := h.Properties.Update(c.Request.Context(), claimsOrNil(c), id, patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    property,
		"message": "Property updated successfully",
	})
}

// Delete handles DELETE /properties/:id.
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}
	property, err := h.Properties.Delete(c.Request.Context(), claimsOrNil(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    property,
		"message": "Property deleted successfully",
	})
}

// UploadImages handles POST /properties/:id/images with multipart field "images".
func (h *PropertyHandler) UploadImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		headers = form.File["images"]
	}

	files := make([]service.ImageFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, service.ImageFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	result, err := h.Properties.AttachImages(c.Request.Context(), claimsOrNil(c), id, files)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result,
		"message": fmt.Sprintf("%d image(s) uploaded successfully", len(result.UploadedImages)),
	})
}

// DeleteImage handles DELETE /properties/:id/images?url=.
func (h *PropertyHandler) DeleteImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}
	result, err := h.Properties.DetachImage(c.Request.Context(), claimsOrNil(c), id, c.Query("url"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"message": "Image deleted successfully",
	})
}
