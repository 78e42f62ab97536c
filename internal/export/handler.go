package export

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"comictracker/pkg/models"
)

type Handler struct {
	Builder *Builder
}

func NewHandler(builder *Builder) *Handler {
	return &Handler{Builder: builder}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export/xlsx", h.exportXLSX)
}

func (h *Handler) exportXLSX(c *gin.Context) {
	opts := DefaultOptions()
	if t := c.Query("type"); t != "" && t != "ALL" {
		opts.Type = models.ParseEntryType(t)
	}
	opts.IncludeAltTitles = boolFlag(c.Query("includeAltTitles"), true)
	opts.IncludeCovers = boolFlag(c.Query("includeCovers"), true)

	f, err := h.Builder.Build(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("comictracker-export-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		// headers already sent; nothing useful left to do
		return
	}
}

func boolFlag(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	return value == "1" || strings.EqualFold(value, "true")
}
