package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ExportLinker presigns download links for archived declaration files
type ExportLinker interface {
	DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ExportHandler hands out links to archived TXT and ARC files
type ExportHandler struct {
	BaseHandler
	linker ExportLinker
	ttl    time.Duration
}

// NewExportHandler creates a new ExportHandler. A nil linker answers 503.
func NewExportHandler(linker ExportLinker, ttl time.Duration) *ExportHandler {
	return &ExportHandler{linker: linker, ttl: ttl}
}

// DownloadURLResponse is a presigned link to an archived file
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DownloadURL handles GET /exports/download-url?key=. Keys are laid out as
// <kind>/<book-or-tax>/<tenant>/<year>/<month>/<file>; a key of another
// tenant is reported as not found.
func (h *ExportHandler) DownloadURL(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	if h.linker == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Export archive is not configured")
		return
	}
	key := c.Query("key")
	if key == "" {
		h.BadRequest(c, "key is required")
		return
	}
	segments := strings.Split(key, "/")
	if len(segments) < 6 || segments[2] != actor.TenantID.String() || strings.Contains(key, "..") {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Export not found")
		return
	}

	url, expiresAt, err := h.linker.DownloadURL(c.Request.Context(), key, h.ttl)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DownloadURLResponse{URL: url, ExpiresAt: expiresAt})
}
