package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newswire/pkg/models"
)

// actionRequest is the envelope agents send to /api/action
type actionRequest struct {
	From    string          `json:"from"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type actionResponse struct {
	OK       bool                    `json:"ok"`
	Outgoing []models.OutgoingAction `json:"outgoing"`
	ThreadID string                  `json:"threadId,omitempty"`
}

func (s *Server) postAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.From == "" || req.Action == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing required fields: from, action"})
	}

	payload := req.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	outgoing, threadID, err := s.coordinator.Process(c.Request().Context(), req.From, req.Action, payload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Action processing failed"})
	}
	if outgoing == nil {
		outgoing = []models.OutgoingAction{}
	}

	return c.JSON(http.StatusOK, actionResponse{OK: true, Outgoing: outgoing, ThreadID: threadID})
}

type scrapeRequest struct {
	URLs []string `json:"urls"`
}

type scrapeResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (s *Server) postScrape(c echo.Context) error {
	var req scrapeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if len(req.URLs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing required field: urls (string[])"})
	}
	if len(req.URLs) > s.maxScrapeBatch {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Maximum %d URLs per request", s.maxScrapeBatch)})
	}

	scraped, err := s.scraper.Fetch(c.Request().Context(), req.URLs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Scraping failed"})
	}

	results := make([]scrapeResult, 0, len(req.URLs))
	for _, url := range req.URLs {
		results = append(results, scrapeResult{URL: url, Content: scraped[url]})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}
