package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/newswire/internal/coordinator"
	"github.com/newswire/internal/directory"
	"github.com/newswire/internal/scraper"
)

// Server is the HTTP surface of the feed: the public read API, the
// loopback-only action and scrape endpoints, and the static frontend
type Server struct {
	echo           *echo.Echo
	port           int
	coordinator    *coordinator.Coordinator
	directory      *directory.Client
	scraper        *scraper.Scraper
	maxScrapeBatch int
}

// NewServer creates a new API server
func NewServer(port int, c *coordinator.Coordinator, d *directory.Client, s *scraper.Scraper, staticDir string, maxScrapeBatch int) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if maxScrapeBatch <= 0 {
		maxScrapeBatch = 5
	}

	server := &Server{
		echo:           e,
		port:           port,
		coordinator:    c,
		directory:      d,
		scraper:        s,
		maxScrapeBatch: maxScrapeBatch,
	}

	server.setupRoutes(staticDir)

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(staticDir string) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// Public read API
	s.echo.GET("/api/threads", s.getThreads)
	s.echo.GET("/api/threads/:threadId", s.getThread)
	s.echo.GET("/api/categories", s.getCategories)
	s.echo.GET("/api/categories/:category", s.getCategory)
	s.echo.GET("/api/agents/:address", s.getAgentStats)
	s.echo.GET("/api/agents/:address/reputation", s.getAgentReputation)
	s.echo.GET("/api/leaderboard", s.getLeaderboard)
	s.echo.GET("/api/stats", s.getStats)

	// Loopback-only endpoints used by the coordinator agent running next to
	// the server
	s.echo.POST("/api/action", s.postAction, loopbackOnly)
	s.echo.POST("/api/scrape", s.postScrape, loopbackOnly)

	// Static frontend with SPA fallback for non-API routes
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			s.echo.Use(middleware.StaticWithConfig(middleware.StaticConfig{
				Root:  staticDir,
				Index: "index.html",
				HTML5: true,
				Skipper: func(c echo.Context) bool {
					return strings.HasPrefix(c.Path(), "/api") || c.Path() == "/health"
				},
			}))
		}
	}
}

// loopbackOnly rejects callers that are not on the local machine. The check
// uses the socket peer address, never forwarding headers, which any remote
// caller could forge.
func loopbackOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
		if err != nil {
			host = c.Request().RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
		}
		return next(c)
	}
}

// Start begins the API server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	log.Info().Int("port", s.port).Msg("Listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
