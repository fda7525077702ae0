// Package entities exposes entity reads and lifecycle mutations over REST.
package entities

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vulntrack/vtrack-backend/historic"
	"github.com/vulntrack/vtrack-backend/internal/services"
	"github.com/vulntrack/vtrack-backend/model"
	"github.com/vulntrack/vtrack-backend/treatment"
)

// StatusForError maps the domain error taxonomy onto HTTP statuses.
// Validation rejections keep their specific message so the client can
// surface the exact violated rule.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrEntityNotFound),
		errors.Is(err, model.ErrMetadataNotFound),
		errors.Is(err, model.ErrLatestNotFound),
		errors.Is(err, model.ErrItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrInvalidDateFormat),
		errors.Is(err, model.ErrInvalidAcceptanceSeverity),
		errors.Is(err, model.ErrInvalidNumberAcceptations),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrMissingKeyValue):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// FailWith renders an error response in the standard shape.
func FailWith(c *fiber.Ctx, err error) error {
	return c.Status(StatusForError(err)).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

// Actor resolves the acting identity from the request. Authentication
// lives outside this service; the gateway injects the header.
func Actor(c *fiber.Ctx) string {
	if actor := c.Get("X-Actor-Email"); actor != "" {
		return actor
	}
	return "api@vulntrack.io"
}

// ListForParent returns every assembled entity under a parent.
func ListForParent(repo *historic.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entities, err := repo.EntitiesForParent(c.Context(), c.Params("parent"))
		if err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "entities": entities})
	}
}

// Get returns one assembled entity.
func Get(repo *historic.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entity, err := repo.GetEntity(c.Context(), c.Params("parent"), c.Params("id"))
		if err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "entity": entity})
	}
}

// CreateVulnerability registers a new vulnerability in a group.
func CreateVulnerability(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input services.VulnerabilityInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		input.GroupName = c.Params("parent")
		id, err := svc.CreateVulnerability(c.Context(), input, Actor(c))
		if err != nil {
			return FailWith(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": id})
	}
}

// CreateGitRoot registers a new git root in a group.
func CreateGitRoot(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input services.GitRootInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		input.GroupName = c.Params("parent")
		id, err := svc.CreateGitRoot(c.Context(), input, Actor(c))
		if err != nil {
			return FailWith(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": id})
	}
}

// CreateResource registers a new resource under a root.
func CreateResource(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input services.ResourceInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		input.RootID = c.Params("id")
		id, err := svc.CreateResource(c.Context(), input, Actor(c))
		if err != nil {
			return FailWith(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": id})
	}
}

// cloningRequest is the body of a cloning status update.
type cloningRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RecordCloning appends a CLON record on a git root.
func RecordCloning(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req cloningRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		if err := svc.RecordCloning(c.Context(), c.Params("id"), req.Status, req.Message, Actor(c)); err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// verificationRequest is the body of a verification append.
type verificationRequest struct {
	Status           string   `json:"status"`
	VulnerabilityIDs []string `json:"vulnerability_ids"`
}

// RecordVerification appends a VERIFICATION record on a vulnerability.
func RecordVerification(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verificationRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		if err := svc.RecordVerification(c.Context(), c.Params("id"), req.Status, req.VulnerabilityIDs, Actor(c)); err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// zeroRiskRequest is the body of a zero-risk append.
type zeroRiskRequest struct {
	Status        string `json:"status"`
	Justification string `json:"justification"`
}

// RecordZeroRisk appends a ZERORISK record on a vulnerability.
func RecordZeroRisk(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req zeroRiskRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		if err := svc.RecordZeroRisk(c.Context(), c.Params("id"), req.Status, req.Justification, Actor(c)); err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// AppendTreatment validates and appends a treatment change.
func AppendTreatment(svc *services.TreatmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req treatment.ChangeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
		}
		err := svc.RequestTreatmentChange(c.Context(), c.Params("parent"), c.Params("id"), req, Actor(c))
		if err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// Delete records the terminal DELETED state of an entity.
func Delete(svc *services.EntityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DeleteEntity(c.Context(), c.Params("parent"), c.Params("id"), Actor(c)); err != nil {
			return FailWith(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
