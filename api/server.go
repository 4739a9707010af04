package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dnldd/impulse/chart"
	"github.com/dnldd/impulse/database"
	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/params"
	"github.com/dnldd/impulse/score"
	"github.com/dnldd/impulse/shared"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// defaultReportLimit is the number of reports returned when no limit is requested.
	defaultReportLimit = 20
	// maxReportLimit is the largest number of reports returned per request.
	maxReportLimit = 500
	// shutdownTimeout bounds a graceful server shutdown.
	shutdownTimeout = time.Second * 5
)

// Analyzer defines the requirements for serving market analysis.
type Analyzer interface {
	// Review evaluates the score card of a market.
	Review(ctx context.Context, market string) (*score.Card, error)
	// Indicator computes an indicator of a market for the provided period and interval.
	Indicator(ctx context.Context, market string, period shared.Period, interval shared.Interval, kind indicator.Kind) (*indicator.Output, error)
	// Chart renders a chart of a market for the provided period and interval.
	Chart(ctx context.Context, market string, period shared.Period, interval shared.Interval, kind chart.Kind, theme shared.Theme) ([]byte, error)
}

// ParamsStore defines the requirements for reading and updating parameters.
type ParamsStore interface {
	// Params returns the current parameters.
	Params() params.Params
	// Set updates a window parameter and persists the result.
	Set(key string, value int) (params.Params, error)
	// SetMode updates the chart theme and persists the result.
	SetMode(theme shared.Theme) (params.Params, error)
}

// History defines the requirements for reading recently screened cards.
type History interface {
	// History returns up to the last n cards of a watchlist market, newest first.
	History(market string, n int32) ([]*score.Card, bool)
}

// ServerConfig represents the configuration of the http api.
type ServerConfig struct {
	// Address is the address the server listens on.
	Address string
	// AllowOrigins lists the CORS allowed origins, all origins when empty.
	AllowOrigins []string
	// Analyzer serves market analysis.
	Analyzer Analyzer
	// Params reads and updates parameters.
	Params ParamsStore
	// ParamsSnapshots stores parameter snapshots on change, optional.
	ParamsSnapshots database.ParamsStorer
	// Reports fetches persisted cards, optional.
	Reports database.ReportStorer
	// History serves recently screened cards, optional.
	History History
	// Metrics exposes prometheus metrics, optional.
	Metrics http.Handler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ServerConfig) Validate() error {
	var errs error

	if cfg.Address == "" {
		errs = errors.Join(errs, fmt.Errorf("server address cannot be an empty string"))
	}
	if cfg.Analyzer == nil {
		errs = errors.Join(errs, fmt.Errorf("analyzer cannot be nil"))
	}
	if cfg.Params == nil {
		errs = errors.Join(errs, fmt.Errorf("params store cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Server represents the http api.
type Server struct {
	cfg    *ServerConfig
	router *gin.Engine
	srv    *http.Server
}

// NewServer initializes the http api.
func NewServer(cfg *ServerConfig) (*Server, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowOrigins
	}
	router.Use(cors.New(corsCfg))

	s := &Server{
		cfg:    cfg,
		router: router,
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: time.Second * 10,
		},
	}
	s.setupRoutes()

	return s, nil
}

// requestLogger logs the outcome of each request.
func requestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := logger.Info()
		if status >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("took", time.Since(began)).
			Msg("request")
	}
}

// setupRoutes registers the api routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.cfg.Metrics))
	}

	v1 := s.router.Group("/api/v1")
	v1.GET("/review/:market", s.handleReview)
	v1.GET("/indicator/:market/:kind", s.handleIndicator)
	v1.GET("/chart/:market/:kind", s.handleChart)
	v1.GET("/charts", s.handleChartKinds)
	v1.GET("/params", s.handleParams)
	v1.PUT("/params/:key", s.handleSetParam)
	v1.GET("/reports/:market", s.handleReports)
	v1.GET("/history/:market", s.handleHistory)
	v1.GET("/help", s.handleHelp)
	v1.GET("/help/:topic", s.handleHelp)
}

// Handler returns the http handler of the api.
func (s *Server) Handler() http.Handler {
	return s.router
}

// statusOf maps an error to its http status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidRequest), errors.Is(err, shared.ErrInvalidWindow),
		errors.Is(err, params.ErrUnknownKey), errors.Is(err, params.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNoData), errors.Is(err, ErrUnknownTopic):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInsufficientData), errors.Is(err, shared.ErrDegenerateInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// abort responds with the status and message of the provided error.
func (s *Server) abort(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.cfg.Logger.Error().Msgf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// badRequest responds with an invalid request error.
func (s *Server) badRequest(c *gin.Context, err error) {
	s.abort(c, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err))
}

// handleHealth reports the server is up.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "impulse"})
}

// handleReview responds with the score card of a market. Signals that cannot be scored
// are reported per outcome.
func (s *Server) handleReview(c *gin.Context) {
	card, err := s.cfg.Analyzer.Review(c.Request.Context(), c.Param("market"))
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// request parses the period and interval query parameters.
func request(c *gin.Context) (shared.Period, shared.Interval, error) {
	return shared.ParseRequest(c.Query("period"), c.Query("interval"))
}

// handleIndicator responds with an indicator of a market.
func (s *Server) handleIndicator(c *gin.Context) {
	kind, err := indicator.ParseKind(c.Param("kind"))
	if err != nil {
		s.badRequest(c, err)
		return
	}

	period, interval, err := request(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.cfg.Analyzer.Indicator(c.Request.Context(), c.Param("market"), period, interval, kind)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market":   c.Param("market"),
		"period":   period.String(),
		"interval": interval.String(),
		"output":   out,
	})
}

// handleChart responds with a png chart of a market.
func (s *Server) handleChart(c *gin.Context) {
	kind, err := chart.ParseKind(c.Param("kind"))
	if err != nil {
		s.badRequest(c, err)
		return
	}

	period, interval, err := request(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	p := s.cfg.Params.Params()
	theme := p.Mode
	if raw := c.Query("theme"); raw != "" {
		theme, err = shared.ParseTheme(raw)
		if err != nil {
			s.badRequest(c, err)
			return
		}
	}

	b, err := s.cfg.Analyzer.Chart(c.Request.Context(), c.Param("market"), period, interval, kind, theme)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", b)
}

// handleChartKinds responds with the chart kinds available for a period.
func (s *Server) handleChartKinds(c *gin.Context) {
	period := shared.DefaultPeriod
	if raw := c.Query("period"); raw != "" {
		var err error
		period, err = shared.ParsePeriod(raw)
		if err != nil {
			s.badRequest(c, err)
			return
		}
	}

	kinds := chart.KindsFor(period)
	names := make([]string, len(kinds))
	for idx := range kinds {
		names[idx] = kinds[idx].String()
	}

	c.JSON(http.StatusOK, gin.H{"period": period.String(), "charts": names})
}

// handleParams responds with the current parameters.
func (s *Server) handleParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.Params.Params())
}

// setParamRequest represents a parameter update.
type setParamRequest struct {
	Value json.RawMessage `json:"value"`
}

// handleSetParam updates a window parameter or the chart mode.
func (s *Server) handleSetParam(c *gin.Context) {
	var req setParamRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	key := c.Param("key")
	var p params.Params
	switch key {
	case params.ModeKey:
		var raw string
		err = json.Unmarshal(req.Value, &raw)
		if err != nil {
			s.badRequest(c, fmt.Errorf("mode must be a string: %v", err))
			return
		}

		theme, err := shared.ParseTheme(raw)
		if err != nil {
			s.badRequest(c, err)
			return
		}

		p, err = s.cfg.Params.SetMode(theme)
		if err != nil {
			s.abort(c, err)
			return
		}

	default:
		value, err := strconv.Atoi(string(req.Value))
		if err != nil {
			s.badRequest(c, fmt.Errorf("%s must be an integer", key))
			return
		}

		p, err = s.cfg.Params.Set(key, value)
		if err != nil {
			s.abort(c, err)
			return
		}
	}

	if s.cfg.ParamsSnapshots != nil {
		err = s.cfg.ParamsSnapshots.PersistParams(c.Request.Context(), p)
		if err != nil {
			s.cfg.Logger.Error().Msgf("snapshotting parameters: %v", err)
		}
	}

	c.JSON(http.StatusOK, p)
}

// limit parses the limit query parameter.
func limit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultReportLimit, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxReportLimit {
		return 0, fmt.Errorf("limit must be an integer in [1, %d]", maxReportLimit)
	}

	return n, nil
}

// handleReports responds with the persisted cards of a market, newest first.
func (s *Server) handleReports(c *gin.Context) {
	if s.cfg.Reports == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "report storage is not configured"})
		return
	}

	n, err := limit(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	cards, err := s.cfg.Reports.FetchCards(c.Request.Context(), c.Param("market"), n)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"market": c.Param("market"), "reports": cards})
}

// handleHistory responds with the recently screened cards of a watchlist market.
func (s *Server) handleHistory(c *gin.Context) {
	if s.cfg.History == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "screener is not configured"})
		return
	}

	n, err := limit(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	cards, ok := s.cfg.History.History(c.Param("market"), int32(n))
	if !ok {
		s.abort(c, fmt.Errorf("%w: %s is not on the watchlist", shared.ErrNoData, c.Param("market")))
		return
	}

	c.JSON(http.StatusOK, gin.H{"market": c.Param("market"), "cards": cards})
}

// handleHelp responds with indicator interpretation help.
func (s *Server) handleHelp(c *gin.Context) {
	topics, err := Help(c.Param("topic"))
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

// Run serves the api until the provided context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info().Msgf("serving api on %s", s.cfg.Address)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return s.srv.Shutdown(shutdownCtx)

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving api: %w", err)
	}
}
