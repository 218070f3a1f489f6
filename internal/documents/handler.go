package documents

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"medj/internal/labs"
)

// RoleAdmin may read and retry any document.
const RoleAdmin = "ADMIN"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// POST /documents/analyze (synchronous preview)
// --------------------------------------------------
func (h *Handler) Analyze(c *gin.Context) {
	files, err := readFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Preview(c.Request.Context(), files, readHints(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --------------------------------------------------
// POST /documents (stored, processed by the worker)
// --------------------------------------------------
func (h *Handler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := readFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.service.Upload(c.Request.Context(), userID, files, readHints(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id": doc.ID,
		"status":      doc.Status,
		"message":     "Document uploaded. OCR and analysis will start automatically.",
	})
}

// --------------------------------------------------
// GET /documents/:id
// --------------------------------------------------
func (h *Handler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"), ownerScope(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// --------------------------------------------------
// GET /documents/:id/status (frontend polling)
// --------------------------------------------------
func (h *Handler) Status(c *gin.Context) {
	st, err := h.service.Status(c.Request.Context(), c.Param("id"), ownerScope(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// --------------------------------------------------
// POST /documents/:id/retry
// --------------------------------------------------
func (h *Handler) Retry(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Retry(c.Request.Context(), id, ownerScope(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": id,
		"status":      StatusUploaded,
		"message":     "Document queued for processing again.",
	})
}

// --------------------------------------------------
// helpers
// --------------------------------------------------

func currentUser(c *gin.Context) (string, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// ownerScope is the owner filter for reads: none for admins, the caller
// otherwise. An anonymous caller gets a scope nothing matches.
func ownerScope(c *gin.Context) string {
	if role, _ := c.Get("userRole"); role == RoleAdmin {
		return ""
	}
	if id, ok := currentUser(c); ok {
		return id
	}
	return "-"
}

func readHints(c *gin.Context) labs.Hints {
	return labs.Hints{
		Specialty: c.PostForm("specialty"),
		Category:  c.PostForm("category"),
		DocType:   c.PostForm("doc_type"),
	}
}

func readFiles(c *gin.Context) ([]FileUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.New("multipart form with files is required")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return nil, errors.New("please attach at least one file")
	}

	files := make([]FileUpload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, FileUpload{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxFileBytes+1))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotRetryable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNoText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("❌ request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
