package indicators

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medj/internal/labs"
)

type Handler struct {
	store *Store
	repo  Repository
}

// NewHandler serves the dictionary. repo may be nil, which disables import.
func NewHandler(store *Store, repo Repository) *Handler {
	return &Handler{store: store, repo: repo}
}

type indicatorView struct {
	Name    string   `json:"name"`
	Unit    string   `json:"unit,omitempty"`
	RefLow  *float64 `json:"ref_low,omitempty"`
	RefHigh *float64 `json:"ref_high,omitempty"`
	Range   string   `json:"reference_range,omitempty"`
}

// --------------------------------------------------
// GET /indicators
// --------------------------------------------------
func (h *Handler) List(c *gin.Context) {
	idx := h.store.Current()
	names := idx.Names()

	out := make([]indicatorView, 0, len(names))
	for _, n := range names {
		m, _ := idx.Meta(n)
		v := indicatorView{Name: n, Unit: m.Unit, RefLow: m.RefLow, RefHigh: m.RefHigh}
		if m.HasBounds() {
			v.Range = labs.FormatRange(m.RefLow, m.RefHigh)
		}
		out = append(out, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(out),
		"built_at":   h.store.BuiltAt(),
		"indicators": out,
	})
}

// --------------------------------------------------
// POST /admin/indicators/reload
// --------------------------------------------------
func (h *Handler) Reload(c *gin.Context) {
	if err := h.store.Invalidate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    h.store.Current().Len(),
		"built_at": h.store.BuiltAt(),
	})
}

// --------------------------------------------------
// POST /admin/indicators/import (multipart "file", ?update=true)
// --------------------------------------------------
func (h *Handler) Import(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "indicator storage not configured"})
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	defs, err := ReadCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, _ := strconv.ParseBool(c.Query("update"))
	stats, err := Import(c.Request.Context(), h.repo, defs, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.Invalidate(c.Request.Context()); err != nil {
		log.WithError(err).Warn("⚠️ imported indicators but reload failed")
	}

	c.JSON(http.StatusOK, stats)
}
