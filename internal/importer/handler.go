package importer

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"comictracker/internal/events"
	"comictracker/pkg/models"
)

type Handler struct {
	Importer *Importer
	Runs     *RunRepo
	Hub      *events.Hub
}

func NewHandler(importer *Importer, runs *RunRepo, hub *events.Hub) *Handler {
	return &Handler{Importer: importer, Runs: runs, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.importWorkbook)
	rg.GET("/imports", h.listRuns)
}

func (h *Handler) importWorkbook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open upload failed"})
		return
	}
	defer f.Close()

	run, err := h.Importer.Import(c.Request.Context(), fileHeader.Filename, f)

	if h.Hub != nil && run != nil {
		go h.Hub.BroadcastJSON(events.ImportEvent{
			Type:    "import.finished",
			RunID:   run.ID,
			Status:  string(run.Status),
			Created: run.Created,
			Updated: run.Updated,
			At:      time.Now().UTC(),
		})
	}

	if err != nil {
		log.Printf("[import] %s failed: %v", fileHeader.Filename, err)
		status := http.StatusBadRequest
		if errors.Is(err, ErrImportInProgress) {
			status = http.StatusConflict
		}
		msg := err.Error()
		if run != nil && run.Error != nil {
			msg = *run.Error
		}
		c.JSON(status, gin.H{"error": msg, "run": run})
		return
	}

	c.JSON(http.StatusOK, importSummaryJSON(run))
}

func (h *Handler) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.Runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func importSummaryJSON(run *models.ImportRun) gin.H {
	return gin.H{
		"run":        run,
		"imported":   run.Created,
		"updated":    run.Updated,
		"skipped":    run.Skipped,
		"duplicates": run.Duplicates,
	}
}
