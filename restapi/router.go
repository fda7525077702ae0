// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/historic"
	"github.com/vulntrack/vtrack-backend/internal/services"
	"github.com/vulntrack/vtrack-backend/model"
	"github.com/vulntrack/vtrack-backend/policy"
	"github.com/vulntrack/vtrack-backend/restapi/modules/entities"
	trackingapi "github.com/vulntrack/vtrack-backend/restapi/modules/tracking"
	"github.com/vulntrack/vtrack-backend/tracking"
)

// SetupRoutes configures all REST API routes on top of a single item store.
func SetupRoutes(app *fiber.App, store database.ItemStore, defaults model.OrgPolicy, log *zap.Logger) {
	repo := historic.NewRepository(store, log)
	writer := historic.NewWriter(store)
	policies := policy.NewStoreProvider(store, defaults)

	entitySvc := services.NewEntityService(repo, writer, log)
	treatmentSvc := services.NewTreatmentService(repo, writer, policies, log)
	tracker := tracking.NewTracker(repo, log)

	// API Group /api/v1
	api := app.Group("/api/v1")

	// Group-scoped entity routes
	groups := api.Group("/groups/:parent")
	groups.Get("/entities", entities.ListForParent(repo))
	groups.Get("/entities/:id", entities.Get(repo))
	groups.Delete("/entities/:id", entities.Delete(entitySvc))

	groups.Post("/vulnerabilities", entities.CreateVulnerability(entitySvc))
	groups.Post("/vulnerabilities/:id/treatment", entities.AppendTreatment(treatmentSvc))
	groups.Post("/vulnerabilities/:id/verification", entities.RecordVerification(entitySvc))
	groups.Post("/vulnerabilities/:id/zero-risk", entities.RecordZeroRisk(entitySvc))
	groups.Post("/roots", entities.CreateGitRoot(entitySvc))

	// Trend series for the group's vulnerabilities
	groups.Get("/tracking", trackingapi.ForGroup(tracker))

	// Root-scoped routes
	api.Post("/roots/:id/cloning", entities.RecordCloning(entitySvc))
	api.Post("/roots/:id/resources", entities.CreateResource(entitySvc))
	api.Get("/roots/:parent/entities", entities.ListForParent(repo))
}
