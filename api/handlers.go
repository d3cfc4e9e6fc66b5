package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"llamarural/chat"
	"llamarural/i18n"
	"llamarural/mapview"
	"llamarural/models"
	"llamarural/services"
	"llamarural/storage"
)

const sessionConversationKey = "conversation_id"

type searchResponse struct {
	Count   int                    `json:"count"`
	Message string                 `json:"message"`
	Results []models.CachedResult  `json:"results"`
	Summary models.CoverageSummary `json:"summary"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ds := s.coverage.Dataset()
	body := gin.H{
		"records":   ds.Len(),
		"loaded_at": ds.LoadedAt().Format(time.RFC3339),
	}
	if err := ds.Err(); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSearch(c *gin.Context) {
	lang := s.language(c)
	q, err := s.parseQuery(c)
	if err != nil {
		s.fail(c, lang, err)
		return
	}

	results, err := s.coverage.Search(c.Request.Context(), q)
	if err != nil {
		s.fail(c, lang, err)
		return
	}

	msg := i18n.T(lang, i18n.Found, len(results))
	if len(results) == 0 {
		msg = i18n.T(lang, i18n.NoneFound, q.RadiusKm)
	}
	c.JSON(http.StatusOK, searchResponse{
		Count:   len(results),
		Message: msg,
		Results: models.NewCachedResultSet(results),
		Summary: s.coverage.Summary(results),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	summary, err := s.coverage.GlobalSummary()
	if err != nil {
		s.fail(c, s.language(c), err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleOperators(c *gin.Context) {
	ops, err := s.coverage.Operators()
	if err != nil {
		s.fail(c, s.language(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"all":       i18n.T(s.language(c), i18n.AllOperators),
		"operators": ops,
	})
}

func (s *Server) handleCache(c *gin.Context) {
	results, ok := s.coverage.CachedResults(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": i18n.T(s.language(c), i18n.ErrNoCache)})
		return
	}
	c.JSON(http.StatusOK, results)
}

// handleMap renders the Leaflet page. Without coordinates it centres on the
// default point and shows the last cached results.
func (s *Server) handleMap(c *gin.Context) {
	lang := s.language(c)
	view := mapview.View{
		Lang:      lang,
		Latitude:  mapview.DefaultLatitude,
		Longitude: mapview.DefaultLongitude,
		RadiusKm:  s.cfg.DefaultRadiusKm,
	}

	if c.Query("lat") != "" || c.Query("lon") != "" {
		q, err := s.parseQuery(c)
		if err != nil {
			s.fail(c, lang, err)
			return
		}
		results, err := s.coverage.Search(c.Request.Context(), q)
		if err != nil {
			s.fail(c, lang, err)
			return
		}
		view.Latitude, view.Longitude, view.RadiusKm = q.Latitude, q.Longitude, q.RadiusKm
		view.Results = models.NewCachedResultSet(results)
	} else if cached, ok := s.coverage.CachedResults(c.Request.Context()); ok {
		view.Results = cached
	}

	html, err := mapview.RenderString(view)
	if err != nil {
		s.fail(c, lang, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// handleBatch accepts an uploaded CSV or XLSX of query points and answers
// with an XLSX workbook, one row per point.
func (s *Server) handleBatch(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	dir, err := os.MkdirTemp("", "llamarural-batch-*")
	if err != nil {
		s.fail(c, s.language(c), err)
		return
	}
	defer os.RemoveAll(dir)

	id := uuid.NewString()
	inputPath := filepath.Join(dir, id+"_"+filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		s.fail(c, s.language(c), err)
		return
	}

	points, err := storage.ReadQueryPoints(inputPath, c.PostForm("sheet"), s.cfg.DatasetDelimiter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows := s.batch.Run(c.Request.Context(), points)
	outPath := filepath.Join(dir, "batch-"+id[:8]+".xlsx")
	if err := storage.WriteBatchXLSX(outPath, rows, "Results"); err != nil {
		s.fail(c, s.language(c), err)
		return
	}
	c.FileAttachment(outPath, filepath.Base(outPath))
}

func (s *Server) handleChatHistory(c *gin.Context) {
	conv := s.conversation(c)
	c.JSON(http.StatusOK, gin.H{"id": conv.ID, "messages": conv.Visible()})
}

func (s *Server) handleChat(c *gin.Context) {
	if s.assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not configured"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	lang := s.language(c)
	conv := s.conversation(c)
	ctx := c.Request.Context()

	reply := s.assistant.WithFallback(i18n.T(lang, i18n.ChatError)).
		Reply(ctx, conv, req.Message, func() (string, bool) {
			return s.coverage.CachedContext(ctx)
		})
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleChatReset(c *gin.Context) {
	conv := s.conversation(c)
	conv.Reset()
	c.Status(http.StatusNoContent)
}

// conversation returns the conversation bound to the caller's session,
// starting one when needed.
func (s *Server) conversation(c *gin.Context) *chat.Conversation {
	session := sessions.Default(c)
	id, _ := session.Get(sessionConversationKey).(string)

	conv, created := s.registry.Get(id)
	if created {
		session.Set(sessionConversationKey, conv.ID)
		if err := session.Save(); err != nil {
			s.logger.Warn("[api] Session save failed: %v", err)
		}
	}
	return conv
}

// parseQuery reads lat, lon, radius and operator. The localised "all"
// operator label means no filter.
func (s *Server) parseQuery(c *gin.Context) (models.SearchQuery, error) {
	q := models.SearchQuery{Operator: c.Query("operator")}
	if q.Operator == i18n.T(i18n.ES, i18n.AllOperators) || q.Operator == i18n.T(i18n.EN, i18n.AllOperators) {
		q.Operator = ""
	}

	var err error
	if q.Latitude, err = floatParam(c, "lat"); err != nil {
		return q, err
	}
	if q.Longitude, err = floatParam(c, "lon"); err != nil {
		return q, err
	}
	if c.Query("radius") == "" {
		q.RadiusKm = s.cfg.DefaultRadiusKm
	} else if q.RadiusKm, err = floatParam(c, "radius"); err != nil {
		return q, err
	}
	return q, nil
}

func floatParam(c *gin.Context, name string) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", services.ErrInvalidInput, name)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", services.ErrInvalidInput, name, raw)
	}
	return f, nil
}

// fail writes err with the status its kind maps to.
func (s *Server) fail(c *gin.Context, lang i18n.Lang, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T(lang, i18n.ErrInvalid, err)})
	case errors.Is(err, services.ErrDataUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": i18n.T(lang, i18n.ErrUnavailable, err)})
	default:
		s.logger.Error("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": i18n.T(lang, i18n.ErrSearch, err)})
	}
}
