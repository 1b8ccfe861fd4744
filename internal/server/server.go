package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/store"
)

const defaultProductLimit = 100

type Server struct {
	Detector *core.Detector
	Catalog  store.Catalog
	Search   config.SearchConfig
	Logger   zerolog.Logger
}

func NewServer(detector *core.Detector, catalog store.Catalog, search config.SearchConfig, logger zerolog.Logger) *Server {
	return &Server{
		Detector: detector,
		Catalog:  catalog,
		Search:   search,
		Logger:   logger.With().Str("component", "server").Logger(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	products := api.Group("/products")
	products.GET("", s.ListProducts)
	products.GET("/stats", s.ProductStats)
	products.GET("/:id", s.GetProduct)

	duplicates := api.Group("/duplicates")
	duplicates.POST("/search-description", s.SearchDescription)
	duplicates.POST("/search-range", s.SearchRange)
	duplicates.POST("/search-category", s.SearchCategory)
	duplicates.GET("/stats", s.DuplicateStats)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		s.Logger.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// searchOptions is the JSON shape shared by the search endpoints. A missing
// threshold takes the configured default.
type searchOptions struct {
	Threshold     *float64 `json:"threshold"`
	UseValidation bool     `json:"useValidation"`
	Level         string   `json:"level"`
}

func (s *Server) options(o searchOptions) model.Options {
	threshold := s.Search.DefaultThreshold
	if o.Threshold != nil {
		threshold = *o.Threshold
	}
	return model.Options{
		Threshold:     threshold,
		UseValidation: o.UseValidation,
		Level:         model.Level(o.Level),
	}
}

type DescriptionRequest struct {
	searchOptions
	Description string `json:"description"`
}

type RangeRequest struct {
	searchOptions
	FromID int64 `json:"fromId"`
	ToID   int64 `json:"toId"`
}

type CategoryRequest struct {
	searchOptions
	Category string `json:"category"`
}

func (s *Server) SearchDescription(c *gin.Context) {
	var req DescriptionRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.Detector.SearchByDescription(c.Request.Context(), model.DescriptionSearch{
		Options: s.options(req.searchOptions),
		Query:   req.Description,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) SearchCategory(c *gin.Context) {
	var req CategoryRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.Detector.SearchByCategory(c.Request.Context(), model.CategorySearch{
		Options:  s.options(req.searchOptions),
		Category: req.Category,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchRange streams the range scan as server-sent events. Errors raised
// before the first progress event (bad input, store down) are answered as
// plain JSON with an HTTP error status.
func (s *Server) SearchRange(c *gin.Context) {
	var req RangeRequest
	if !s.bind(c, &req) {
		return
	}

	events := s.Detector.StreamByRange(c.Request.Context(), model.RangeSearch{
		Options: s.options(req.searchOptions),
		FromID:  req.FromID,
		ToID:    req.ToID,
	})

	first, ok := <-events
	if !ok {
		return
	}
	if first.Type == model.ScanEventError {
		s.writeError(c, first.Err)
		return
	}

	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	next := first
	gone := c.Stream(func(io.Writer) bool {
		c.Render(-1, sse.Event{Data: s.frame(next)})
		if next.Terminal() {
			return false
		}
		ev, open := <-events
		next = ev
		return open
	})
	if gone {
		s.Logger.Debug().Msg("client left before the range scan finished")
	}
}

func (s *Server) frame(ev model.ScanEvent) gin.H {
	switch ev.Type {
	case model.ScanEventProgress:
		return gin.H{
			"type":       "progress",
			"current":    ev.Progress.Current,
			"total":      ev.Progress.Total,
			"percentage": ev.Progress.Percentage,
		}
	case model.ScanEventComplete:
		return gin.H{"type": "complete", "result": ev.Result}
	default:
		s.Logger.Error().Err(ev.Err).Msg("range scan failed")
		return gin.H{"type": "error", "error": core.KindOf(ev.Err), "message": ev.Err.Error()}
	}
}

func (s *Server) ListProducts(c *gin.Context) {
	limit := defaultProductLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(c, fmt.Errorf("%w: limit must be a positive integer", core.ErrInvalidRequest))
			return
		}
		limit = n
	}

	items, err := s.Catalog.List(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", core.ErrStore, err))
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		s.writeError(c, fmt.Errorf("%w: id must be a positive integer", core.ErrInvalidRequest))
		return
	}

	item, err := s.Catalog.FindByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFound", "message": err.Error()})
		return
	}
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", core.ErrStore, err))
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) ProductStats(c *gin.Context) {
	stats, _, err := s.collectStats(c, false)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) DuplicateStats(c *gin.Context) {
	stats, categories, err := s.collectStats(c, true)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalProducts":       stats.TotalProducts,
		"totalWithEmbeddings": stats.ProductsWithEmbeddings,
		"categories":          categories,
	})
}

// collectStats runs the count queries concurrently.
func (s *Server) collectStats(c *gin.Context, withCategories bool) (model.Stats, []string, error) {
	var (
		stats      model.Stats
		categories = []string{}
	)
	g, ctx := errgroup.WithContext(c.Request.Context())

	g.Go(func() error {
		n, err := s.Catalog.CountActive(ctx)
		stats.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, err := s.Catalog.CountWithEmbeddings(ctx)
		stats.ProductsWithEmbeddings = n
		return err
	})
	if withCategories {
		g.Go(func() error {
			list, err := s.Catalog.Categories(ctx)
			if list != nil {
				categories = list
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return stats, nil, fmt.Errorf("%w: %w", core.ErrStore, err)
	}
	if stats.TotalProducts > 0 {
		stats.EmbeddingPercentage = float64(stats.ProductsWithEmbeddings) / float64(stats.TotalProducts) * 100
	}
	return stats, categories, nil
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err))
		return false
	}
	return true
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.Logger.Error().Err(err).Str("kind", kind).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": kind, "message": err.Error()})
}

func statusFor(kind string) int {
	switch kind {
	case core.KindInvalidRange, core.KindInvalidThreshold, core.KindInvalidLevel, core.KindInvalidRequest:
		return http.StatusBadRequest
	case core.KindEmbeddingUnavailable:
		return http.StatusBadGateway
	case core.KindStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
