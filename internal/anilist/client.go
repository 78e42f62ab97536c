package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://graphql.anilist.co"

const searchQuery = `
query ($search: String, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(search: $search, type: MANGA) {
      id
      title { romaji english native }
      synonyms
      coverImage { large medium }
    }
  }
}
`

// Client is a thin GraphQL client for the AniList manga search. One POST
// per lookup, best effort; callers decide how failures are surfaced.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 12 * time.Second},
		BaseURL:    defaultBaseURL,
	}
}

// Media is one search result from AniList.
type Media struct {
	ID    int64 `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Synonyms   []string `json:"synonyms"`
	CoverImage struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"coverImage"`
}

// DisplayTitle prefers english, then romaji, then native.
func (m Media) DisplayTitle() string {
	switch {
	case m.Title.English != "":
		return m.Title.English
	case m.Title.Romaji != "":
		return m.Title.Romaji
	case m.Title.Native != "":
		return m.Title.Native
	}
	return "Unknown title"
}

// CoverURL prefers the large image.
func (m Media) CoverURL() string {
	if m.CoverImage.Large != "" {
		return m.CoverImage.Large
	}
	return m.CoverImage.Medium
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type searchResponse struct {
	Data struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Search runs one manga lookup. perPage is clamped to 1-10.
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]Media, error) {
	if perPage < 1 || perPage > 10 {
		perPage = 10
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     searchQuery,
		Variables: map[string]any{"search": query, "perPage": perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("anilist request failed (%d): %s", resp.StatusCode, snippet)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Errors) > 0 {
		return nil, fmt.Errorf("anilist error: %s", payload.Errors[0].Message)
	}

	return payload.Data.Page.Media, nil
}
