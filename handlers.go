package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Server exposes the matcher and conversation history over HTTP
type Server struct {
	cache     *CorpusCache
	sessions  SessionStore
	watching  bool
	startedAt time.Time
}

func NewServer(cache *CorpusCache, sessions SessionStore, watching bool) *Server {
	return &Server{
		cache:     cache,
		sessions:  sessions,
		watching:  watching,
		startedAt: time.Now(),
	}
}

// newEcho builds the echo instance with middleware and routes
func newEcho(s *Server, rateLimit float64) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if rateLimit > 0 {
		store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rateLimit),
			Burst:     int(math.Max(1, math.Ceil(rateLimit))),
			ExpiresIn: 3 * time.Minute,
		})
		e.Use(middleware.RateLimiter(store))
	}

	// Routes
	e.POST("/respond", s.handleRespond)
	e.GET("/respond", s.handleRespond)
	e.GET("/sessions/:id/messages", s.handleMessages)
	e.GET("/health", s.handleHealth)

	// Admin endpoints
	e.POST("/admin/reload", s.handleReload)
	e.GET("/admin/corpus-info", s.handleCorpusInfo)

	return e
}

func (s *Server) handleHealth(c echo.Context) error {
	corpus := s.cache.Matcher().Corpus()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now(),
		"started_at":  s.startedAt,
		"categories":  len(corpus.Categories),
		"loaded_at":   corpus.LoadedAt,
		"auto_reload": s.watching,
	})
}

func (s *Server) handleCorpusInfo(c echo.Context) error {
	corpus := s.cache.Matcher().Corpus()

	tags := make([]string, 0, len(corpus.Categories))
	for _, category := range corpus.Categories {
		tags = append(tags, category.Tag)
	}

	info := map[string]interface{}{
		"file_path":      corpus.Path,
		"loaded_at":      corpus.LoadedAt,
		"categories":     len(corpus.Categories),
		"tags":           tags,
		"skipped":        corpus.Skipped(),
		"duplicate_tags": corpus.DuplicateTags(),
		"timestamp":      time.Now(),
	}
	if err := s.cache.LastError(); err != nil {
		info["load_error"] = err.Error()
	}

	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleReload(c echo.Context) error {
	corpus, err := s.cache.Reload()
	if err != nil {
		status := http.StatusInternalServerError
		if isLoadError(err) {
			status = http.StatusUnprocessableEntity
		}
		return c.JSON(status, map[string]string{
			"error": fmt.Sprintf("Reload failed, previous corpus kept: %v", err),
		})
	}

	return c.JSON(http.StatusOK, ReloadResponse{
		Message:    fmt.Sprintf("Corpus '%s' reloaded", corpus.Path),
		Categories: len(corpus.Categories),
		ReloadedAt: time.Now(),
	})
}

func (s *Server) handleRespond(c echo.Context) error {
	var req RespondRequest

	// Bind request (works for both POST JSON and GET query params)
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	ctx := c.Request().Context()

	sessionID := req.SessionID
	if sessionID == "" {
		session, err := s.sessions.Create(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		sessionID = session.ID
	}

	reply, res, err := Converse(ctx, s.sessions, s.cache.Matcher(), sessionID, req.Text)
	if errors.Is(err, ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("Session not found: %s", sessionID),
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, RespondResponse{
		Reply:     reply,
		SessionID: sessionID,
		Matched:   res.Matched,
	})
}

func (s *Server) handleMessages(c echo.Context) error {
	id := c.Param("id")

	messages, err := s.sessions.Messages(c.Request().Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("Session not found: %s", id),
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	// Newest first, the way a chat window lists them
	if c.QueryParam("order") == "desc" {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	return c.JSON(http.StatusOK, MessagesResponse{SessionID: id, Messages: messages})
}
