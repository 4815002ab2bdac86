package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/newswire/internal/store"
)

func (s *Server) getThreads(c echo.Context) error {
	opts := store.ListThreadsOptions{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		Limit:    intParam(c.QueryParam("limit"), 50),
		Offset:   intParam(c.QueryParam("offset"), 0),
	}

	threads, err := s.coordinator.GetThreads(c.Request().Context(), opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list threads"})
	}
	return c.JSON(http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) getThread(c echo.Context) error {
	ctx := c.Request().Context()

	thread, err := s.coordinator.GetThread(ctx, c.Param("threadId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch thread"})
	}
	if thread == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Thread not found"})
	}

	updates, err := s.coordinator.UpdatesWithReactions(ctx, thread.ThreadID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch updates"})
	}

	return c.JSON(http.StatusOK, map[string]any{"thread": thread, "updates": updates})
}

func (s *Server) getCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"categories": s.coordinator.Categories()})
}

func (s *Server) getCategory(c echo.Context) error {
	category := c.Param("category")

	valid := false
	for _, known := range s.coordinator.Categories() {
		if known == category {
			valid = true
			break
		}
	}
	if !valid {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid category: " + category})
	}

	threads, err := s.coordinator.GetThreads(c.Request().Context(), store.ListThreadsOptions{
		Status:   "live",
		Category: category,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list threads"})
	}
	return c.JSON(http.StatusOK, map[string]any{"category": category, "threads": threads})
}

func (s *Server) getAgentStats(c echo.Context) error {
	stats, err := s.coordinator.GetAgentStats(c.Request().Context(), c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch agent stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) getAgentReputation(c echo.Context) error {
	info := s.directory.Lookup(c.Request().Context(), c.Param("address"))
	return c.JSON(http.StatusOK, map[string]any{
		"reputation": info.Reputation,
		"name":       info.Name,
	})
}

func (s *Server) getLeaderboard(c echo.Context) error {
	ctx := c.Request().Context()

	leaderboard, err := s.coordinator.GetLeaderboard(ctx, intParam(c.QueryParam("limit"), 20))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch leaderboard"})
	}

	// Enrich entries with directory names; lookups that fail leave the name
	// null
	for _, entry := range leaderboard {
		info := s.directory.Lookup(ctx, entry.Address)
		entry.Name = info.Name
	}

	return c.JSON(http.StatusOK, map[string]any{"leaderboard": leaderboard})
}

func (s *Server) getStats(c echo.Context) error {
	stats, err := s.coordinator.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
