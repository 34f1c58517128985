package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

// DocumentHandler serves ownership-document proof endpoints.
type DocumentHandler struct {
	Documents *service.DocumentService
	MaxBytes  int64
}

func NewDocumentHandler(documents *service.DocumentService, cfg config.Config) *DocumentHandler {
	maxBytes := cfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &DocumentHandler{Documents: documents, MaxBytes: maxBytes}
}

// Prove handles POST /properties/:id/document-proof with multipart field "document".
func (h *DocumentHandler) Prove(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}

	fh, err := c.FormFile("document")
	if err != nil {
		badRequest(c, "Document is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Document is unreadable")
		return
	}
	defer f.Close()

	// One byte past the cap lets the service report the size violation.
	data, err := io.ReadAll(io.LimitReader(f, h.MaxBytes+1))
	if err != nil {
		badRequest(c, "Document is unreadable")
		return
	}

	proof, err := h.Documents.Prove(c.Request.Context(), claimsOrNil(c), id, service.DocumentFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": proof})
}

// Latest handles GET /properties/:id/document-proof.
func (h *DocumentHandler) Latest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid property ID")
		return
	}
	proof, err := h.Documents.Latest(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": proof})
}

// Verify handles POST /document-proof/verify. The body is the proof itself.
func (h *DocumentHandler) Verify(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Proof is required")
		return
	}
	verdict, err := h.Documents.VerifyProof(c.Request.Context(), body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}
