package handlers

import (
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-optimizer/internal/cache"
	"github.com/stitts-dev/lineup-optimizer/internal/config"
	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
	"github.com/stitts-dev/lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/lineup-optimizer/internal/progress"
)

// OptimizationHandler serves the lineup optimization request surface.
type OptimizationHandler struct {
	cache  *cache.ResultCache
	hub    *progress.Hub
	config *config.Config
	logger *logrus.Logger
}

func NewOptimizationHandler(
	resultCache *cache.ResultCache,
	hub *progress.Hub,
	cfg *config.Config,
	logger *logrus.Logger,
) *OptimizationHandler {
	return &OptimizationHandler{
		cache:  resultCache,
		hub:    hub,
		config: cfg,
		logger: logger,
	}
}

// wireStats is one hitter's raw season counts as they arrive on the wire.
type wireStats struct {
	PA      int `json:"pa"`
	H       int `json:"h"`
	Singles int `json:"1b"`
	Doubles int `json:"2b"`
	Triples int `json:"3b"`
	HR      int `json:"hr"`
	BB      int `json:"bb"`
	HBP     int `json:"hbp"`
	IBB     int `json:"ibb"`
}

type wirePlayer struct {
	Name       string     `json:"name"`
	Data       *wireStats `json:"data"`
	Handedness string     `json:"handedness"`
}

type wireConstraints struct {
	Fixed               map[string]string `json:"fixed"`
	MaxConsecutiveLeft  int               `json:"max_consecutive_left"`
	MaxConsecutiveRight int               `json:"max_consecutive_right"`
}

type wireRequest struct {
	Players     map[string]wirePlayer `json:"players" binding:"required"`
	Constraints *wireConstraints      `json:"constraints"`
	TopN        int                   `json:"top_n"`
	DeadlineMs  int                   `json:"deadline_ms"`
}

type wireLineup struct {
	Order []string `json:"order"`
	Score float64  `json:"score"`
}

type wireResponse struct {
	ExpectedRuns             float64      `json:"expected_runs"`
	Lineups                  []wireLineup `json:"lineups"`
	ExpectedRunsAboveAverage float64      `json:"expected_runs_above_average"`
}

type wireError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// OptimizeLineups binds the wire request, runs the pipeline, and writes the
// wire response. Slot keys "0".."8" are the canonical indexing this service
// documents for the players map.
func (h *OptimizationHandler) OptimizeLineups(c *gin.Context) {
	var req wireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wireError{Error: err.Error(), Code: "MalformedRequest"})
		return
	}

	optReq, err := toOptimizerRequest(req, h.config)
	if err != nil {
		status, code := mapError(err)
		c.JSON(status, wireError{Error: err.Error(), Code: code})
		return
	}

	cacheKey := requestHash(req)
	if h.cache != nil {
		if cached, err := h.cache.Get(c.Request.Context(), cacheKey); err != nil {
			h.logger.WithError(err).Warn("cache lookup failed, proceeding without it")
		} else if cached != nil {
			c.JSON(http.StatusOK, toWireResponse(cached))
			return
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	if h.hub != nil {
		h.hub.Broadcast(progress.Update{RequestID: requestID, Message: "starting optimization", Fraction: 0})
	}

	log := logrus.NewEntry(h.logger).WithField("request_id", requestID)
	start := time.Now()
	resp, err := optimizer.Optimize(c.Request.Context(), optReq, log)
	if err != nil {
		status, code := mapError(err)
		log.WithError(err).WithField("elapsed", time.Since(start)).Warn("optimization request failed")
		c.JSON(status, wireError{Error: err.Error(), Code: code})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(progress.Update{RequestID: requestID, Message: "optimization complete", Fraction: 1})
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), cacheKey, resp, h.config.CacheTTL); err != nil {
			log.WithError(err).Warn("failed to cache optimization result")
		}
	}

	log.WithFields(logrus.Fields{
		"lineups": len(resp.Lineups),
		"elapsed": time.Since(start),
	}).Info("optimization request completed")

	c.JSON(http.StatusOK, toWireResponse(resp))
}

// ValidateOptimizationRequest checks a request for structural validity
// without running the search.
func (h *OptimizationHandler) ValidateOptimizationRequest(c *gin.Context) {
	var req wireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wireError{Error: err.Error(), Code: "MalformedRequest"})
		return
	}

	optReq, err := toOptimizerRequest(req, h.config)
	if err != nil {
		status, code := mapError(err)
		c.JSON(status, wireError{Error: err.Error(), Code: code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"hitters":      len(optReq.Hitters),
		"top_n":        optReq.TopN,
		"has_deadline": optReq.Deadline > 0,
	})
}

// GetCacheStatus reports basic cache occupancy.
func (h *OptimizationHandler) GetCacheStatus(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.cache.Status(c.Request.Context()))
}

func toOptimizerRequest(req wireRequest, cfg *config.Config) (optimizer.Request, error) {
	hitters := make([]optimizer.HitterInput, lineup.NumSlots)
	for slot := 0; slot < lineup.NumSlots; slot++ {
		key := strconv.Itoa(slot)
		p, ok := req.Players[key]
		if !ok || p.Data == nil {
			return optimizer.Request{}, fmt.Errorf("%w: players[%q] must supply stats", lineup.ErrMalformedRequest, key)
		}
		hitters[slot] = optimizer.HitterInput{
			Name:       p.Name,
			Handedness: lineup.Handedness(p.Handedness),
			Counts: lineup.Counts{
				PA:      p.Data.PA,
				H:       p.Data.H,
				Singles: p.Data.Singles,
				Doubles: p.Data.Doubles,
				Triples: p.Data.Triples,
				HR:      p.Data.HR,
				BB:      p.Data.BB,
				HBP:     p.Data.HBP,
				IBB:     p.Data.IBB,
			},
		}
	}

	var constraints *optimizer.ConstraintInput
	if req.Constraints != nil {
		fixed := make(map[int]string, len(req.Constraints.Fixed))
		for slotKey, name := range req.Constraints.Fixed {
			slot, err := strconv.Atoi(slotKey)
			if err != nil {
				return optimizer.Request{}, fmt.Errorf("%w: fixed slot %q is not an integer", lineup.ErrMalformedConstraints, slotKey)
			}
			fixed[slot] = name
		}
		constraints = &optimizer.ConstraintInput{
			Fixed:               fixed,
			MaxConsecutiveLeft:  req.Constraints.MaxConsecutiveLeft,
			MaxConsecutiveRight: req.Constraints.MaxConsecutiveRight,
		}
	}

	optReq := optimizer.Request{
		Hitters:     hitters,
		Constraints: constraints,
		TopN:        req.TopN,
		Deadline:    time.Duration(req.DeadlineMs) * time.Millisecond,
	}
	if cfg != nil {
		optReq.DefaultTopN = cfg.DefaultTopN
		optReq.MaxTopN = cfg.MaxTopN
		optReq.Workers = cfg.SearchWorkers
		optReq.MaxDeadline = cfg.SearchTimeout
	}
	return optReq, nil
}

func toWireResponse(resp *optimizer.Response) wireResponse {
	lineups := make([]wireLineup, len(resp.Lineups))
	for i, l := range resp.Lineups {
		lineups[i] = wireLineup{Order: l.Order, Score: l.Score}
	}
	return wireResponse{
		ExpectedRuns:             resp.ExpectedRuns,
		Lineups:                  lineups,
		ExpectedRunsAboveAverage: resp.ExpectedRunsAboveAverage,
	}
}

// requestHash derives a stable cache key from the raw wire request.
func requestHash(req wireRequest) string {
	h := sha1.New()
	// JSON rather than %+v: fmt prints nested pointers as addresses, which
	// would differ between identical requests. encoding/json sorts map keys.
	data, _ := json.Marshal(req)
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// mapError translates an internal sentinel error into its documented
// HTTP status and error code.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, lineup.ErrMalformedRequest):
		return http.StatusBadRequest, "MalformedRequest"
	case errors.Is(err, lineup.ErrMalformedConstraints):
		return http.StatusBadRequest, "MalformedConstraints"
	case errors.Is(err, lineup.ErrInvalidStats):
		return http.StatusBadRequest, "InvalidStats"
	case errors.Is(err, lineup.ErrRateOverflow):
		return http.StatusBadRequest, "RateOverflow"
	case errors.Is(err, lineup.ErrInfeasibleConstraints):
		return http.StatusUnprocessableEntity, "InfeasibleConstraints"
	case errors.Is(err, lineup.ErrNoFeasibleLineup):
		return http.StatusUnprocessableEntity, "NoFeasibleLineup"
	case errors.Is(err, lineup.ErrCancelled), errors.Is(err, lineup.ErrDeadlineExceeded):
		return 499, "Cancelled"
	case errors.Is(err, lineup.ErrNumericInstability):
		return http.StatusInternalServerError, "NumericInstability"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}
