package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"copier/internal/logger"
	"copier/internal/model"
	"copier/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Status struct {
	StartedAt time.Time               `json:"started_at"`
	Watching  bool                    `json:"watching"`
	Mappings  []model.MappingSnapshot `json:"mappings"`
	History   *repository.Stats       `json:"history,omitempty"`
}

type Server struct {
	echo     *echo.Echo
	engine   *Engine
	histRepo *repository.HistoryRepository
	addr     string
	stopCh   chan struct{}
}

// NewServer exposes the engine's status. histRepo may be nil when history
// is disabled.
func NewServer(engine *Engine, addr string, histRepo *repository.HistoryRepository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		engine:   engine,
		histRepo: histRepo,
		addr:     addr,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.POST("/resync", s.handleResync)
	s.echo.GET("/history", s.handleHistory)
}

func (s *Server) Start() {
	go func() {
		logger.Log.Info("status server started",
			zap.String("addr", s.addr))

		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("status server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	watching := false
	select {
	case <-s.engine.Ready():
		watching = true
	default:
	}

	status := Status{
		StartedAt: s.engine.StartedAt(),
		Watching:  watching,
		Mappings:  s.engine.Snapshots(),
	}

	if s.histRepo != nil {
		stats, err := s.histRepo.GetStats()
		if err != nil {
			logger.Log.Warn("failed to read history stats", zap.Error(err))
		} else {
			status.History = &stats
		}
	}

	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleResync(c echo.Context) error {
	if err := s.engine.Resync("api"); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "resync scheduled"})
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.histRepo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history is disabled (set db_path)"})
	}

	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil && parsed > 0 {
			n = parsed
		}
	}

	var (
		histories []model.History
		err       error
	)
	if c.QueryParam("failed") == "true" {
		histories, err = s.histRepo.GetFailed(n)
	} else {
		histories, err = s.histRepo.GetRecent(n)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}
