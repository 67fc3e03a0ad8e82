// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package server exposes the monitor state and the gated lock commands over
// HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smartsafe/safewatch/internal/acquisition"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/db"
	"github.com/smartsafe/safewatch/internal/gate"
	"github.com/smartsafe/safewatch/internal/ledger"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/smartsafe/safewatch/internal/model"
	"github.com/smartsafe/safewatch/internal/notify"
	"github.com/smartsafe/safewatch/internal/relay"
)

const defaultReadingsLimit = 10

// StateSource is the read side of the acquisition loop.
type StateSource interface {
	State() acquisition.State
}

// Deps are the components the server reads from and drives.
type Deps struct {
	Loop         StateSource
	Ledger       *ledger.Ledger
	Store        db.ReadingStore
	PrimaryTable string
	Gate         *gate.Gate
	Relay        *relay.Relay
	Dispatcher   gate.Dispatcher
	Gatherer     prometheus.Gatherer
}

type Server struct {
	deps   Deps
	addr   string
	router *gin.Engine
}

// New builds the router. Nil Gatherer falls back to the default registry.
func New(addr string, deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	s := &Server{deps: deps, addr: addr, router: r}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debugf("http: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.GET("/warnings", s.handleWarnings)
		api.GET("/readings", s.handleReadings)
		api.POST("/auth", s.handleAuth)
		api.POST("/logout", s.handleLogout)
		api.POST("/lock", s.handleCommand(model.IntentLock))
		api.POST("/unlock", s.handleCommand(model.IntentUnlock))
		api.POST("/notify-password-attempt", s.handleNotify)
	}
}

type stateResponse struct {
	acquisition.State
	Error         string          `json:"error,omitempty"`
	IsReady       bool            `json:"ready"`
	LockState     model.LockState `json:"lockState"`
	Pending       model.Intent    `json:"pending,omitempty"`
	Authenticated bool            `json:"authenticated"`
	Warnings      int             `json:"warnings"`
}

func (s *Server) handleState(c *gin.Context) {
	st := s.deps.Loop.State()
	resp := stateResponse{State: st, IsReady: st.Ready()}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	if s.deps.Relay != nil {
		resp.LockState = s.deps.Relay.State()
		resp.Pending, _ = s.deps.Relay.Pending()
	}
	if s.deps.Gate != nil {
		resp.Authenticated = s.deps.Gate.Authenticated()
	}
	if s.deps.Ledger != nil {
		resp.Warnings = s.deps.Ledger.Len()
	}
	c.JSON(http.StatusOK, resp)
}

func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func (s *Server) handleWarnings(c *gin.Context) {
	n, ok := queryLimit(c, -1)
	if !ok {
		return
	}
	entries := []model.WarningEntry{}
	if s.deps.Ledger != nil {
		entries = append(entries, s.deps.Ledger.Latest(n)...)
	}
	c.JSON(http.StatusOK, gin.H{"warnings": entries, "count": len(entries)})
}

func (s *Server) handleReadings(c *gin.Context) {
	n, ok := queryLimit(c, defaultReadingsLimit)
	if !ok {
		return
	}
	if s.deps.Store == nil || s.deps.PrimaryTable == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no primary sensor table configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, err := s.deps.Store.RecentSensorRows(ctx, s.deps.PrimaryTable, n)
	if err != nil {
		logging.Warnf("http: readings: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch sensor data"})
		return
	}
	if rows == nil {
		rows = []model.SensorRow{}
	}
	c.JSON(http.StatusOK, gin.H{"readings": rows, "count": len(rows)})
}

type authRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAuth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Gate.Submit(req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.deps.Gate.Logout()
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (s *Server) handleCommand(intent model.Intent) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Gate == nil || !s.deps.Gate.Authenticated() {
			c.JSON(http.StatusForbidden, gin.H{"error": "password required"})
			return
		}
		conf, err := s.deps.Relay.Send(c.Request.Context(), intent)
		if err != nil {
			var (
				ae *relay.ActuatorError
				ce *config.ConfigError
			)
			switch {
			case errors.Is(err, relay.ErrCommandPending):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.As(err, &ae):
				c.JSON(http.StatusBadGateway, gin.H{"error": ae.Error(), "status": ae.Status})
			case errors.As(err, &ce):
				c.JSON(http.StatusInternalServerError, gin.H{"error": ce.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, conf)
	}
}

// handleNotify accepts attempt reports from external front ends. It always
// answers 200; delivery happens in the background.
func (s *Server) handleNotify(c *gin.Context) {
	var a notify.Attempt
	if err := c.ShouldBindJSON(&a); err != nil {
		logging.Warnf("http: notify-password-attempt: %v", err)
		c.JSON(http.StatusOK, gin.H{"message": "Notification was not sent: malformed request."})
		return
	}
	if s.deps.Dispatcher != nil {
		s.deps.Dispatcher.Dispatch(a)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification queued."})
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("http: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Infof("http: stopped")
	return nil
}
