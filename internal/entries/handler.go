package entries

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"comictracker/internal/activity"
	"comictracker/internal/events"
	"comictracker/pkg/models"
)

type Handler struct {
	Repo     *Repo
	Activity *activity.Repo
	Hub      *events.Hub
}

func NewHandler(repo *Repo, activityRepo *activity.Repo, hub *events.Hub) *Handler {
	return &Handler{Repo: repo, Activity: activityRepo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/entries", h.list)
	rg.POST("/entries", h.create)
	rg.GET("/entries/:id", h.getOne)
	rg.PUT("/entries/:id", h.update)
	rg.DELETE("/entries/:id", h.remove)
	rg.POST("/entries/:id/chapters", h.incrementChapters)
	rg.POST("/entries/:id/alt-titles", h.addAltTitle)
	rg.DELETE("/entries/:id/alt-titles/:alt_id", h.removeAltTitle)
	rg.PUT("/entries/:id/cover", h.setCover)
	rg.DELETE("/entries/:id/cover", h.clearCover)
	rg.GET("/updates/latest", h.latestUpdates)
}

// entryReq carries form-style string fields so the same sentinel and
// normalization rules apply as on spreadsheet import.
type entryReq struct {
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	ChaptersRead  string   `json:"chapters_read"`
	TotalChapters string   `json:"total_chapters"`
	Score         string   `json:"score"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	AltTitles     []string `json:"alt_titles"`
}

func parseEntryReq(req entryReq) (*models.Entry, []string, string) {
	rawTitle, ok := NormalizeField(req.Title)
	if !ok {
		return nil, nil, "title is required"
	}
	title := normalizeTitleValue(rawTitle)
	titleLower := strings.ToLower(title)

	entryType := models.ParseEntryType(req.Type)
	if entryType == "" {
		return nil, nil, "type must be one of MANHWA, MANHUA, LIGHT_NOVEL, WESTERN"
	}

	e := &models.Entry{
		Type:           entryType,
		Title:          title,
		TitleLower:     titleLower,
		BaseTitle:      title,
		BaseTitleLower: titleLower,
		Status:         ParseStatus(req.Status),
		ChaptersRead:   ParseIntField(req.ChaptersRead),
		TotalChapters:  ParseIntField(req.TotalChapters),
		Score:          ParseScore(req.Score),
		StartDate:      ParseDateField(req.StartDate),
		EndDate:        ParseDateField(req.EndDate),
	}

	var alts []string
	for _, a := range req.AltTitles {
		if a = normalizeTitleValue(a); a != "" {
			alts = append(alts, a)
		}
	}
	return e, alts, ""
}

func normalizeTitleValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	q := ListQuery{
		Q:      c.Query("q"),
		Type:   models.ParseEntryType(c.Query("type")),
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
		Limit:  limit,
		Offset: offset,
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

func (h *Handler) getOne(c *gin.Context) {
	e, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) create(c *gin.Context) {
	var req entryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, alts, msg := parseEntryReq(req)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if existing, _ := h.Repo.GetByTitleType(c.Request.Context(), e.Title, e.Type); existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "entry already exists for this title and type"})
		return
	}

	if err := h.Repo.Create(c.Request.Context(), e, alts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	_ = h.Activity.Record(c.Request.Context(), models.ActionEntryCreated, &e.ID,
		"Created \""+e.Title+"\" ("+string(e.Type)+")", nil)
	h.broadcast("entry.created", e)

	saved, err := h.Repo.GetByID(c.Request.Context(), e.ID)
	if err != nil || saved == nil {
		c.JSON(http.StatusCreated, e)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	var req entryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, alts, msg := parseEntryReq(req)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	e.ID = id

	// alt titles only replaced when the request supplies some, matching
	// the manual edit form behavior
	if err := h.Repo.Update(c.Request.Context(), e, alts, len(alts) > 0); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	_ = h.Activity.Record(c.Request.Context(), models.ActionEntryUpdated, &id,
		"Updated \""+e.Title+"\" ("+string(e.Type)+")", nil)
	h.broadcast("entry.updated", e)

	saved, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil || saved == nil {
		c.JSON(http.StatusOK, e)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if _, err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	_ = h.Activity.Record(c.Request.Context(), models.ActionEntryDeleted, &id,
		"Deleted \""+existing.Title+"\" ("+string(existing.Type)+")", nil)
	h.broadcast("entry.deleted", existing)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type chaptersReq struct {
	Delta int `json:"delta"`
}

func (h *Handler) incrementChapters(c *gin.Context) {
	var req chaptersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, err := h.Repo.IncrementChapters(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	h.broadcast("entry.updated", e)
	c.JSON(http.StatusOK, e)
}

type altTitleReq struct {
	Title string `json:"title"`
}

func (h *Handler) addAltTitle(c *gin.Context) {
	id := c.Param("id")

	var req altTitleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := normalizeTitleValue(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alternate title required"})
		return
	}

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	alt, err := h.Repo.AddAltTitle(c.Request.Context(), id, title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusCreated, alt)
}

func (h *Handler) removeAltTitle(c *gin.Context) {
	ok, err := h.Repo.RemoveAltTitle(c.Request.Context(), c.Param("id"), c.Param("alt_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alt title not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type coverReq struct {
	ImageURL         string `json:"image_url"`
	Source           string `json:"source"`
	SourceID         int64  `json:"source_id"`
	SourceTitlesJSON string `json:"source_titles_json"`
}

func (h *Handler) setCover(c *gin.Context) {
	id := c.Param("id")

	var req coverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !strings.HasPrefix(req.ImageURL, "http://") && !strings.HasPrefix(req.ImageURL, "https://") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url must be an http(s) URL"})
		return
	}

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if err := h.Repo.SetCover(c.Request.Context(), id, CoverUpdate{
		ImageURL:         req.ImageURL,
		Source:           req.Source,
		SourceID:         req.SourceID,
		SourceTitlesJSON: req.SourceTitlesJSON,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	saved, _ := h.Repo.GetByID(c.Request.Context(), id)
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) clearCover(c *gin.Context) {
	if err := h.Repo.ClearCover(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) latestUpdates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.Repo.LatestUpdated(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) broadcast(eventType string, e *models.Entry) {
	if h.Hub == nil {
		return
	}
	go h.Hub.BroadcastJSON(events.EntryEvent{
		Type:      eventType,
		EntryID:   e.ID,
		Title:     e.Title,
		EntryType: string(e.Type),
		At:        time.Now().UTC(),
	})
}
