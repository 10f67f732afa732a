package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/ingestion"
	"github.com/flowboard/backend/internal/providers"
	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/internal/storage/models"
	"github.com/flowboard/backend/internal/storage/sqlite"
	"github.com/flowboard/backend/pkg/logger"
)

type BugHandler struct {
	db        *sqlite.Client
	processor *ingestion.Processor
}

func NewBugHandler(db *sqlite.Client, processor *ingestion.Processor) *BugHandler {
	return &BugHandler{
		db:        db,
		processor: processor,
	}
}

func (h *BugHandler) HandleList(c *fiber.Ctx) error {
	product := c.Query("product")
	if product == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "product is required",
		})
	}

	reports, err := h.db.QueryBugReports(c.Context(), models.BugFilter{
		Product: product,
		Status:  c.Query("status"),
		Section: c.Query("section"),
		Feature: c.Query("feature"),
		Limit:   c.QueryInt("limit", 200),
	})
	if err != nil {
		logger.Error("Failed to query bug reports", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query bug reports",
		})
	}

	bugs := make([]risk.BugRecord, 0, len(reports))
	for _, report := range reports {
		bugs = append(bugs, providers.Normalize(report))
	}

	return c.JSON(fiber.Map{
		"product": product,
		"bugs":    bugs,
	})
}

func (h *BugHandler) HandleSummary(c *fiber.Ctx) error {
	product := c.Query("product")
	if product == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "product is required",
		})
	}

	counts, err := h.db.CountBugsByStatus(c.Context(), product)
	if err != nil {
		logger.Error("Failed to count bug reports", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count bug reports",
		})
	}

	return c.JSON(fiber.Map{
		"product":   product,
		"by_status": counts,
	})
}

func (h *BugHandler) HandleImport(c *fiber.Ctx) error {
	var req struct {
		SourceURL   string `json:"source_url"`
		HTMLContent string `json:"html_content"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.HTMLContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "html_content is required",
		})
	}

	imported, err := h.processor.ProcessExport(c.Context(), req.SourceURL, req.HTMLContent)
	if err != nil {
		logger.Error("Failed to process bug export", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Failed to process export",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Export processed successfully",
		"imported": imported,
	})
}
