// Package api stellt die Status-API bereit: Health, Metriken, Abfragen und manuelles Auslösen eines Zyklus.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gov-auditor/services"
	"gov-auditor/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// CycleRunner führt einen Zyklus aus (Orchestrator).
type CycleRunner interface {
	RunCycle(ctx context.Context) (services.CycleReport, bool)
}

// Server hält die Abhängigkeiten der Handler.
type Server struct {
	Store     *storage.Store
	Cycles    CycleRunner
	SecretKey string
	Logger    *zap.Logger
	// BaseCtx begrenzt manuell ausgelöste Zyklen (nil = context.Background()).
	BaseCtx context.Context

	cycles sync.WaitGroup
}

// Wait blockiert, bis alle manuell ausgelösten Zyklen beendet sind.
func (s *Server) Wait() {
	s.cycles.Wait()
}

type queryRequest struct {
	Fonte      string `json:"fonte"`
	Termo      string `json:"termo"`
	Notificado *bool  `json:"notificado"`
	Minerado   *bool  `json:"minerado"`
	Limit      int    `json:"limit"`
}

func apiKeyAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// NewRouter baut den gin-Router. /healthz bleibt ohne API-Key erreichbar.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.health)

	auth := router.Group("/")
	auth.Use(apiKeyAuthMiddleware(s.SecretKey))
	auth.GET("/metrics", gin.WrapH(promhttp.Handler()))
	setupPublicacaoRoutes(auth, s)
	auth.POST("/ciclo", s.triggerCycle)
	return router
}

func (s *Server) health(c *gin.Context) {
	n, err := s.Store.Count(c.Request.Context())
	if err != nil {
		s.Logger.Error("Health-Check: Datenbankfehler", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "erro", "error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "publicacoes": n})
}

func setupPublicacaoRoutes(router *gin.RouterGroup, s *Server) {
	rg := router.Group("/publicacoes")
	rg.POST("/query", func(c *gin.Context) {
		var req queryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Limit <= 0 {
			req.Limit = defaultLimit
		}
		if req.Limit > maxLimit {
			req.Limit = maxLimit
		}
		pubs, err := s.Store.Query(c.Request.Context(), storage.Filter{
			Fonte:      req.Fonte,
			Termo:      req.Termo,
			Notificado: req.Notificado,
			Minerado:   req.Minerado,
			Limit:      req.Limit,
		})
		if err != nil {
			s.Logger.Error("Abfrage fehlgeschlagen", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(pubs), "publicacoes": pubs})
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		pub, err := s.Store.Get(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "publicacao not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, pub)
	})
}

func (s *Server) triggerCycle(c *gin.Context) {
	ctx := s.BaseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		report, ran := s.Cycles.RunCycle(ctx)
		if !ran {
			s.Logger.Info("Manueller Zyklus ignoriert, es läuft bereits einer.")
			return
		}
		s.Logger.Info("Manueller Zyklus abgeschlossen",
			zap.Int("inserted", report.Inserted), zap.Int("notified", report.Notified))
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "Ciclo disparado."})
}
