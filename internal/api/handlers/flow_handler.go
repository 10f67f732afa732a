package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/flow"
	"github.com/flowboard/backend/internal/graph/neo4j"
	"github.com/flowboard/backend/pkg/logger"
)

// FlowHandler serves the static flow graph and the neo4j-backed path queries.
// graphDB may be nil when the mirror is disabled; path queries then 503.
type FlowHandler struct {
	graph   *flow.Graph
	graphDB *neo4j.Client
}

func NewFlowHandler(graph *flow.Graph, graphDB *neo4j.Client) *FlowHandler {
	return &FlowHandler{
		graph:   graph,
		graphDB: graphDB,
	}
}

func (h *FlowHandler) HandleGraph(c *fiber.Ctx) error {
	return c.JSON(h.graph)
}

func (h *FlowHandler) HandleScreen(c *fiber.Ctx) error {
	screen, ok := h.graph.ScreenByID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Screen not found",
		})
	}

	return c.JSON(screen)
}

func (h *FlowHandler) HandleNeighbors(c *fiber.Ctx) error {
	if h.graphDB == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Graph queries are disabled",
		})
	}

	id := c.Params("id")
	if _, ok := h.graph.ScreenByID(id); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Screen not found",
		})
	}

	neighbors, err := h.graphDB.Neighbors(c.Context(), id)
	if err != nil {
		logger.Error("Neighbor query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query neighbors",
		})
	}

	return c.JSON(fiber.Map{
		"screen_id": id,
		"neighbors": neighbors,
	})
}

func (h *FlowHandler) HandlePaths(c *fiber.Ctx) error {
	if h.graphDB == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Graph queries are disabled",
		})
	}

	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and to are required",
		})
	}

	maxDepth, _ := strconv.Atoi(c.Query("maxDepth"))

	paths, err := h.graphDB.FindPaths(c.Context(), from, to, maxDepth)
	if err != nil {
		logger.Error("Path query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query paths",
		})
	}

	return c.JSON(fiber.Map{
		"from":  from,
		"to":    to,
		"paths": paths,
	})
}
