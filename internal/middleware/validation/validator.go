package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Identifiers (products, sections, features, screen ids, bucket keys) are
// slug-like: letters, digits, dash, underscore, dot, with ":" allowed as the
// bucket key separator.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

type Config struct {
	MaxIdentifierLength int
	MaxImportSize       int
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxIdentifierLength == 0 {
		cfg.MaxIdentifierLength = 200
	}
	if cfg.MaxImportSize == 0 {
		cfg.MaxImportSize = 10 * 1024 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		for _, param := range []string{"product", "section", "feature", "status", "from", "to"} {
			value := c.Query(param)
			if value == "" {
				continue
			}
			if len(value) > cfg.MaxIdentifierLength || !identifierPattern.MatchString(value) {
				cfg.Logger.Warn("Rejected malformed query parameter",
					zap.String("param", param),
					zap.String("ip", c.IP()),
					zap.String("path", c.Path()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid " + param + " parameter",
				})
			}
		}

		if strings.Contains(c.Path(), "/bugs/import") && c.Method() == fiber.MethodPost {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			content, ok := req["html_content"].(string)
			if !ok || content == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "html_content is required and must be a string",
				})
			}

			if len(content) > cfg.MaxImportSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Export content exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}
