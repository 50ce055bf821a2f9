// Command clo-server exposes the CLO cashflow engine as a small HTTP
// reporting API: submit a deal, then fetch its final simulated snapshot.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	intconfig "github.com/meridian-analytics/clo-engine/internal/config"
	"github.com/meridian-analytics/clo-engine/internal/clo"
	"github.com/meridian-analytics/clo-engine/internal/dealfile"
	"github.com/meridian-analytics/clo-engine/internal/scenario"
	"github.com/meridian-analytics/clo-engine/logger"
)

// submissionRequest bundles a deal payload with its scenario assumptions
// in a single POST body.
type submissionRequest struct {
	Deal        dealfile.Deal        `json:"deal"`
	Assumptions scenario.Assumptions `json:"assumptions"`
}

var (
	results    = map[string]clo.Snapshot{}
	resultsMu  sync.RWMutex
	workerPool = make(chan struct{}, 100)
)

func getServiceInfo(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{
		"service":     "clo-engine",
		"description": "Collateralised Loan Obligation cashflow projection service",
		"version":     "1.0.0",
		"endpoints": gin.H{
			"GET /info":            "Service information and capabilities",
			"GET /simulations/:id": "Retrieve a completed simulation's final snapshot",
			"POST /simulations":    "Submit a deal and scenario assumptions for simulation",
		},
	})
}

func getSimulation(c *gin.Context) {
	id := c.Param("id")
	resultsMu.RLock()
	defer resultsMu.RUnlock()
	snap, ok := results[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such simulation"})
		return
	}
	c.IndentedJSON(http.StatusOK, snap)
}

func requestSimulation(lg *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submissionRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
			return
		}

		lg.Info("received deal for simulation", "deal_id", req.Deal.DealID, "collateral_count", len(req.Deal.Collateral))

		go func(req submissionRequest) {
			workerPool <- struct{}{}
			defer func() { <-workerPool }()

			engine, err := dealfile.Build(req.Deal, req.Assumptions)
			if err != nil {
				lg.Error("failed to construct CLO", "deal_id", req.Deal.DealID, "error", err)
				return
			}
			if err := engine.Simulate(); err != nil {
				lg.Error("simulation failed", "deal_id", req.Deal.DealID, "error", err)
				return
			}

			final := engine.History[len(engine.History)-1]
			resultsMu.Lock()
			results[req.Deal.DealID] = final
			resultsMu.Unlock()

			lg.Info("simulation complete", "deal_id", req.Deal.DealID, "final_nav", final.NAV)
		}(req)

		c.JSON(http.StatusAccepted, gin.H{
			"message": fmt.Sprintf("deal %s accepted for simulation", req.Deal.DealID),
			"deal_id": req.Deal.DealID,
		})
	}
}

func buildRouter(lg *logger.Logger) *gin.Engine {
	cfg, _ := intconfig.ReadConfig()
	logPath, _ := cfg["LOG_PATH"].(string)
	logFile, _ := cfg["LOG_FILE"].(string)

	if logPath != "" && logFile != "" {
		f, err := os.Create(logPath + logFile)
		if err == nil {
			gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
			gin.DefaultErrorWriter = gin.DefaultWriter
		}
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/info", getServiceInfo)
	r.GET("/simulations/:id", getSimulation)
	r.POST("/simulations", requestSimulation(lg))

	return r
}

func main() {
	lg, err := logger.NewLogger("./logs")
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}

	router := buildRouter(lg)
	router.Run("localhost:8080")
}
