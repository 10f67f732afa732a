package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/flowboard/backend/internal/flow"
	"github.com/flowboard/backend/internal/metrics"
	"github.com/flowboard/backend/internal/risk"
)

// RiskHandler serves the three risk call sites: the overview list, the
// per-screen panel and the per-feature modal. All three go through the one
// shared aggregator so they can never drift numerically.
type RiskHandler struct {
	graph      *flow.Graph
	aggregator *risk.Aggregator
}

func NewRiskHandler(graph *flow.Graph, aggregator *risk.Aggregator) *RiskHandler {
	return &RiskHandler{
		graph:      graph,
		aggregator: aggregator,
	}
}

func (h *RiskHandler) HandleOverview(c *fiber.Ctx) error {
	screens := h.screensForProduct(c.Query("product"))

	start := time.Now()
	overview := h.aggregator.FeatureOverview(c.Context(), screens)
	recordRunMetrics(overview, time.Since(start))

	return c.JSON(overview)
}

func (h *RiskHandler) HandleScreen(c *fiber.Ctx) error {
	screenID := c.Params("id")

	screen, ok := h.graph.ScreenByID(screenID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Screen not found",
		})
	}

	result := h.aggregator.ScreenRisk(c.Context(), screen)
	return c.JSON(result)
}

func (h *RiskHandler) HandleFeature(c *fiber.Ctx) error {
	key := c.Params("key")

	bucket, ok := h.aggregator.FeatureRisk(c.Context(), h.graph.Screens, key)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Feature not found",
		})
	}

	return c.JSON(bucket)
}

func (h *RiskHandler) screensForProduct(product string) []flow.Screen {
	if product == "" {
		return h.graph.Screens
	}

	var screens []flow.Screen
	for _, screen := range h.graph.Screens {
		if screen.Product == product {
			screens = append(screens, screen)
		}
	}
	return screens
}

func recordRunMetrics(overview risk.Overview, elapsed time.Duration) {
	metrics.AggregationDuration.Observe(elapsed.Seconds())
	metrics.FeatureBucketCount.Observe(float64(len(overview.Buckets)))
	if overview.Partial {
		metrics.PartialRuns.Inc()
	}

	levels := map[risk.Level]int{
		risk.LevelLow:    0,
		risk.LevelMedium: 0,
		risk.LevelHigh:   0,
	}
	for _, bucket := range overview.Buckets {
		levels[bucket.Score.Level]++
	}
	for level, count := range levels {
		metrics.RiskLevelCount.WithLabelValues(string(level)).Set(float64(count))
	}
}
