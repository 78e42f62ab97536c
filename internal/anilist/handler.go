package anilist

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Client   *Client
	Autofill *Autofiller
}

func NewHandler(client *Client, autofill *Autofiller) *Handler {
	return &Handler{Client: client, Autofill: autofill}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/anilist/search", h.search)
	rg.POST("/covers/autofill", h.autofill)
}

type searchReq struct {
	Query string `json:"query"`
}

func (h *Handler) search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if len(query) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be at least 2 characters"})
		return
	}

	media, err := h.Client.Search(c.Request.Context(), query, 10)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(media))
	for _, m := range media {
		results = append(results, gin.H{
			"id":           m.ID,
			"title":        m.DisplayTitle(),
			"romaji":       m.Title.Romaji,
			"english":      m.Title.English,
			"native":       m.Title.Native,
			"synonyms":     m.Synonyms,
			"image_large":  m.CoverImage.Large,
			"image_medium": m.CoverImage.Medium,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type autofillReq struct {
	Limit int `json:"limit"`
}

func (h *Handler) autofill(c *gin.Context) {
	var req autofillReq
	_ = c.ShouldBindJSON(&req)
	if req.Limit == 0 {
		req.Limit = 30
	}

	summary, err := h.Autofill.Run(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "autofill failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
