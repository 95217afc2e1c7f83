// Package server exposes an Engine over HTTP: grid state and edits as JSON,
// search control, a websocket stream of search events and Prometheus
// metrics.
package server

import (
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdrpinto/gridastar"
)

//go:embed static/index.html
var indexHTML []byte

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Config holds the optional collaborators of a Server.
type Config struct {
	// Gatherer backs /metrics. The route is not registered when nil.
	Gatherer        prometheus.Gatherer
	WallProbability float64
	Rand            *rand.Rand
	Logger          *slog.Logger
}

// Server is the HTTP front end of one Engine.
type Server struct {
	engine *gridastar.Engine
	grid   *gridastar.Grid
	cfg    Config
	logger *slog.Logger
	hub    *hub
	router *gin.Engine

	rngMu sync.Mutex
}

func New(engine *gridastar.Engine, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.WallProbability == 0 {
		cfg.WallProbability = gridastar.DefaultWallProbability
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Server{
		engine: engine,
		grid:   engine.Grid(),
		cfg:    cfg,
		logger: cfg.Logger,
		hub:    newHub(),
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.routes()
	// Edits made through any client reach every subscriber.
	s.grid.Observe(func(changed gridastar.CellsChanged) { s.hub.broadcast(changed) })
	return s
}

func (s *Server) routes() {
	r := s.router
	r.GET("/", s.handleIndex)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/grid", s.handleGrid)
	r.POST("/walls", s.handleWall)
	r.POST("/start", s.handleMoveStart)
	r.POST("/target", s.handleMoveTarget)
	r.POST("/randomize", s.handleRandomize)

	search := r.Group("/search")
	search.POST("/start", s.handleSearchStart)
	search.POST("/cancel", s.handleSearchCancel)
	search.POST("/reset", s.handleSearchReset)

	r.GET("/events", s.handleEvents)
	if s.cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// PumpEvents forwards engine events to websocket subscribers. It returns
// once the engine is closed, disconnecting every subscriber.
func (s *Server) PumpEvents() {
	defer s.hub.close()
	for {
		event, ok := s.engine.Events().Wait()
		if !ok {
			return
		}
		s.hub.broadcast(event)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

type pointRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

type wallRequest struct {
	X    *int  `json:"x" binding:"required"`
	Y    *int  `json:"y" binding:"required"`
	Wall *bool `json:"wall" binding:"required"`
}

type randomizeRequest struct {
	Probability *float64 `json:"probability" binding:"omitempty,gte=0,lte=1"`
	Seed        *int64   `json:"seed"`
}

type gridResponse struct {
	Width  int               `json:"w"`
	Height int               `json:"h"`
	Start  gridastar.Point   `json:"start"`
	Target gridastar.Point   `json:"target"`
	Walls  []gridastar.Point `json:"walls"`
	Open   []gridastar.Point `json:"open,omitempty"`
	Closed []gridastar.Point `json:"closed,omitempty"`
	State  string            `json:"state"`
	RunID  string            `json:"run_id,omitempty"`
	Found  bool              `json:"found"`
	Path   []gridastar.Point `json:"path,omitempty"`
	Cost   float64           `json:"cost,omitempty"`
}

func (s *Server) snapshot() gridResponse {
	snap := s.grid.Snapshot()
	resp := gridResponse{
		Width:  snap.Width,
		Height: snap.Height,
		Start:  snap.Start,
		Target: snap.Target,
		Walls:  []gridastar.Point{},
		State:  s.engine.State().String(),
	}
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			p := gridastar.Point{X: x, Y: y}
			cell := snap.At(p)
			switch {
			case cell.Wall:
				resp.Walls = append(resp.Walls, p)
			case cell.Membership == gridastar.Open:
				resp.Open = append(resp.Open, p)
			case cell.Membership == gridastar.Closed:
				resp.Closed = append(resp.Closed, p)
			}
		}
	}
	if result := s.engine.Result(); result.State.Terminal() {
		resp.RunID = result.RunID.String()
		resp.Found = result.Found
		resp.Path = result.Path
		resp.Cost = result.TotalCost
	}
	return resp
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleGrid(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleWall(c *gin.Context) {
	var req wallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.grid.SetWall(*req.X, *req.Y, *req.Wall); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleMoveStart(c *gin.Context) {
	s.handleMove(c, s.grid.MoveStart)
}

func (s *Server) handleMoveTarget(c *gin.Context) {
	s.handleMove(c, s.grid.MoveTarget)
}

func (s *Server) handleMove(c *gin.Context, move func(x, y int) error) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := move(*req.X, *req.Y); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

// handleRandomize replaces the walls. Like search start it is refused while
// a search runs.
func (s *Server) handleRandomize(c *gin.Context) {
	var req randomizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if s.engine.State() == gridastar.Running {
		s.fail(c, gridastar.ErrSearchRunning)
		return
	}
	if err := s.engine.Reset(); err != nil {
		s.fail(c, err)
		return
	}

	probability := s.cfg.WallProbability
	if req.Probability != nil {
		probability = *req.Probability
	}
	var err error
	if req.Seed != nil {
		err = s.grid.Randomize(probability, rand.New(rand.NewSource(*req.Seed)))
	} else {
		s.rngMu.Lock()
		err = s.grid.Randomize(probability, s.cfg.Rand)
		s.rngMu.Unlock()
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleSearchStart(c *gin.Context) {
	if err := s.engine.Start(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": gridastar.Running.String()})
}

func (s *Server) handleSearchCancel(c *gin.Context) {
	s.engine.Cancel()
	c.JSON(http.StatusAccepted, gin.H{"state": s.engine.State().String()})
}

// handleSearchReset cancels a running search, otherwise clears the last one.
func (s *Server) handleSearchReset(c *gin.Context) {
	if s.engine.State() == gridastar.Running {
		s.engine.Cancel()
		c.JSON(http.StatusAccepted, gin.H{"state": "cancelling"})
		return
	}
	if err := s.engine.Reset(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	events, unsubscribe := s.hub.subscribe()
	defer unsubscribe()
	s.logger.Debug("event subscriber connected", "remote", c.Request.RemoteAddr)

	// The client never sends anything; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				s.logger.Debug("event subscriber write failed", "error", err)
				return
			}
		case <-gone:
			s.logger.Debug("event subscriber disconnected", "remote", c.Request.RemoteAddr)
			return
		}
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gridastar.ErrInvalidCoordinate), errors.Is(err, gridastar.ErrInvalidProbability):
		status = http.StatusBadRequest
	case errors.Is(err, gridastar.ErrSearchRunning), errors.Is(err, gridastar.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, gridastar.ErrAlreadyAtTarget):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
