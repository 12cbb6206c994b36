package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
	"github.com/ajitpratap0/riskmonitor/internal/validation"
)

const (
	// DefaultListLimit is the number of log entries returned when no limit is given
	DefaultListLimit = 100
	// MaxListLimit caps the limit query parameter
	MaxListLimit = 1000

	// maxBodyBytes caps request bodies, log imports included
	maxBodyBytes = 16 << 20

	healthCheckTimeout = 2 * time.Second
)

// learnRequest is the body of POST /learn
type learnRequest struct {
	Trades []monitoring.Trade `json:"trades"`
	// Actions may be omitted to evaluate the actions already in the log
	Actions []monitoring.RiskAction `json:"actions"`
}

// respondError writes the error body used by every endpoint
func respondError(c *gin.Context, status int, message string, err error) {
	body := gin.H{"error": message}

	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		body["details"] = verrs
	} else if err != nil && status < http.StatusInternalServerError {
		body["details"] = err.Error()
	}

	c.JSON(status, body)
}

// parseLimit reads the limit query parameter, clamped to MaxListLimit
func parseLimit(c *gin.Context) (int, bool) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return DefaultListLimit, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		respondError(c, http.StatusBadRequest, "invalid limit", nil)
		return 0, false
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, true
}

// newest returns the last n items of a chronological slice
func newest[T any](items []T, n int) []T {
	if n < len(items) {
		return items[len(items)-n:]
	}
	return items
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "RiskMonitor API",
		"version": s.version,
		"status":  "running",
		"time":    time.Now().UTC(),
	})
}

// handleGetHealth reports the log sizes and the state of every registered dependency
func (s *Server) handleGetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	components := gin.H{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("component", name).Msg("Health check failed")
			components[name] = gin.H{"status": "unhealthy", "error": err.Error()}
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = gin.H{"status": "healthy"}
	}

	snapshot := s.monitor.Store().Snapshot()
	c.JSON(code, gin.H{
		"status":     status,
		"version":    s.version,
		"uptime":     time.Since(s.startTime).Seconds(),
		"time":       time.Now().UTC(),
		"components": components,
		"log": gin.H{
			"signals":  len(snapshot.Signals),
			"actions":  len(snapshot.Actions),
			"insights": len(snapshot.LearningInsights),
		},
	})
}

// handleListSignals handles GET /api/v1/signals?source=&limit=
func (s *Server) handleListSignals(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	signals := s.monitor.Store().Snapshot().Signals
	if source := c.Query("source"); source != "" {
		filtered := make([]monitoring.RiskSignal, 0, len(signals))
		for _, sig := range signals {
			if string(sig.Source) == source {
				filtered = append(filtered, sig)
			}
		}
		signals = filtered
	}
	signals = newest(signals, limit)

	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}

// handleGetSignal handles GET /api/v1/signals/:id
func (s *Server) handleGetSignal(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "invalid signal ID", nil)
		return
	}

	signal, ok := s.monitor.Store().Signal(id)
	if !ok {
		respondError(c, http.StatusNotFound, "signal not found", nil)
		return
	}

	c.JSON(http.StatusOK, signal)
}

// handleListActions handles GET /api/v1/actions?action_type=&limit=
func (s *Server) handleListActions(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	actions := s.monitor.Store().Snapshot().Actions
	if actionType := c.Query("action_type"); actionType != "" {
		filtered := make([]monitoring.RiskAction, 0, len(actions))
		for _, a := range actions {
			if string(a.ActionType) == actionType {
				filtered = append(filtered, a)
			}
		}
		actions = filtered
	}
	actions = newest(actions, limit)

	c.JSON(http.StatusOK, gin.H{
		"actions": actions,
		"count":   len(actions),
	})
}

// handleListInsights handles GET /api/v1/insights?limit=
func (s *Server) handleListInsights(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	insights := newest(s.monitor.Store().Snapshot().LearningInsights, limit)

	c.JSON(http.StatusOK, gin.H{
		"insights": insights,
		"count":    len(insights),
	})
}

// handleExportLog handles GET /api/v1/log/export
func (s *Server) handleExportLog(c *gin.Context) {
	data, err := s.monitor.Store().Export()
	if err != nil {
		log.Error().Err(err).Msg("Failed to export monitoring log")
		respondError(c, http.StatusInternalServerError, "failed to export monitoring log", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="monitoring-log.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// handleImportLog handles POST /api/v1/log/import. The log is replaced only when
// the whole payload is accepted.
func (s *Server) handleImportLog(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	if err := s.monitor.Store().Import(data); err != nil {
		log.Warn().Err(err).Msg("Rejected monitoring log import")
		respondError(c, http.StatusBadRequest, "invalid monitoring log", err)
		return
	}

	snapshot := s.monitor.Store().Snapshot()
	log.Info().
		Int("signals", len(snapshot.Signals)).
		Int("actions", len(snapshot.Actions)).
		Int("insights", len(snapshot.LearningInsights)).
		Msg("Monitoring log imported")

	c.Status(http.StatusNoContent)
}

// handleRunCycle handles POST /api/v1/cycles
func (s *Server) handleRunCycle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	// Decode over the configured defaults so omitted fields keep them
	in := s.defaults
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validation.ValidateCycleInput(in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid snapshot", err)
		return
	}

	result, err := s.monitor.RunCycle(c.Request.Context(), in)
	if err != nil {
		log.Error().Err(err).Msg("Monitoring cycle failed")
		respondError(c, http.StatusInternalServerError, "monitoring cycle failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleLearn handles POST /api/v1/learn
func (s *Server) handleLearn(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req learnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validation.ValidateOutcomes(req.Trades, req.Actions); err != nil {
		respondError(c, http.StatusBadRequest, "invalid outcomes", err)
		return
	}

	insights, err := s.monitor.Learn(c.Request.Context(), req.Trades, req.Actions)
	if err != nil {
		log.Error().Err(err).Msg("Learning failed")
		respondError(c, http.StatusInternalServerError, "learning failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"insights": insights,
		"count":    len(insights),
	})
}

// handleRecommend handles POST /api/v1/recommendations
func (s *Server) handleRecommend(c *gin.Context) {
	var signal monitoring.RiskSignal
	if err := c.ShouldBindJSON(&signal); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validation.ValidateSignal(signal); err != nil {
		respondError(c, http.StatusBadRequest, "invalid signal", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actions": s.monitor.Recommend(signal),
	})
}
