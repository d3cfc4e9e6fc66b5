package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"llamarural/chat"
	"llamarural/config"
	"llamarural/i18n"
	"llamarural/services"
	"llamarural/utils"
)

const sessionName = "llamarural"

// Server exposes the coverage service, the chat assistant and the map over
// HTTP.
type Server struct {
	cfg       *config.Config
	coverage  *services.CoverageService
	batch     *services.BatchService
	assistant *chat.Assistant
	registry  *chat.Registry
	logger    *utils.Logger
	lang      i18n.Lang

	engine *gin.Engine
}

// NewServer builds the router. assistant may be nil, in which case the chat
// routes answer 503.
func NewServer(cfg *config.Config, coverage *services.CoverageService, batch *services.BatchService,
	assistant *chat.Assistant, logger *utils.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		coverage:  coverage,
		batch:     batch,
		assistant: assistant,
		registry:  chat.NewRegistry(chat.DefaultSystemPrompt, 24*time.Hour),
		logger:    logger,
		lang:      i18n.Parse(cfg.DefaultLang, i18n.ES),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(sessions.Sessions(sessionName, cookie.NewStore([]byte(cfg.SessionSecret))))

	r.GET("/healthz", s.handleHealth)
	r.GET("/map", s.handleMap)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/search", s.handleSearch)
		apiGroup.GET("/stats", s.handleStats)
		apiGroup.GET("/operators", s.handleOperators)
		apiGroup.GET("/cache", s.handleCache)
		apiGroup.POST("/batch", s.handleBatch)

		apiGroup.GET("/chat", s.handleChatHistory)
		apiGroup.POST("/chat", s.handleChat)
		apiGroup.DELETE("/chat", s.handleChatReset)
	}

	s.engine = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on cfg.HTTPAddr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.pruneConversations(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", s.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("[api] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) pruneConversations(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.registry.Prune(now); n > 0 {
				s.logger.Info("[api] Dropped %d idle conversations", n)
			}
		}
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		line := "[api] %s %s → %d (%s)"
		args := []any{c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond)}
		switch {
		case status >= 500:
			s.logger.Error(line, args...)
		case status >= 400:
			s.logger.Warn(line, args...)
		default:
			s.logger.Debug(line, args...)
		}
	}
}

// language resolves the response language from ?lang=, then
// Accept-Language, then the configured default.
func (s *Server) language(c *gin.Context) i18n.Lang {
	if q := c.Query("lang"); q != "" {
		return i18n.Parse(q, s.lang)
	}
	return i18n.FromAcceptLanguage(c.GetHeader("Accept-Language"), s.lang)
}
