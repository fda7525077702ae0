// Package tracking exposes the weekly trend series for a group.
package tracking

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vulntrack/vtrack-backend/restapi/modules/entities"
	"github.com/vulntrack/vtrack-backend/tracking"
)

// ForGroup returns the cumulative weekly series for a group's
// vulnerabilities, one series per category.
func ForGroup(tracker *tracking.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		series, err := tracker.TrackingForGroup(c.Context(), c.Params("parent"))
		if err != nil {
			return entities.FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "tracking": series})
	}
}
