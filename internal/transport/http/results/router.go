package results

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cipherwatch/internal/logger"
	"cipherwatch/internal/store"
)

// Router exposes the latest scan results over a small read-only API.
type Router struct {
	store store.SignalStore
}

func NewRouter(s store.SignalStore) *Router {
	return &Router{store: s}
}

// Register registers the scan result routes.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/runs/latest", r.handleLatestRun)
	group.GET("/signals", r.handleSignals)
	group.GET("/signals/:symbol", r.handleSymbolHistory)
}

func (r *Router) handleLatestRun(c *gin.Context) {
	run, err := r.store.LatestRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoRuns) {
			c.JSON(http.StatusNotFound, gin.H{"error": "还没有任何扫描记录"})
			return
		}
		logger.Errorf("[signal-api] latest run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleSignals 只返回最近一轮里真正触发了信号的条目。
func (r *Router) handleSignals(c *gin.Context) {
	run, err := r.store.LatestRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoRuns) {
			c.JSON(http.StatusNotFound, gin.H{"error": "还没有任何扫描记录"})
			return
		}
		logger.Errorf("[signal-api] signals failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	fired := run.Results[:0:0]
	for _, res := range run.Results {
		if res.HasAnySignal() {
			fired = append(fired, res)
		}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "signals": fired})
}

func (r *Router) handleSymbolHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 symbol"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是正整数"})
			return
		}
		limit = n
	}
	history, err := r.store.SymbolHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		logger.Errorf("[signal-api] history %s failed: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "history": history})
}

// NewServer builds a gin engine with the result routes mounted under /api.
func NewServer(s store.SignalStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	NewRouter(s).Register(engine.Group("/api"))
	return engine
}
