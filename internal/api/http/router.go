package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-console/internal/api/http/handlers"
	"github.com/spec-kit/ops-console/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Directory      *handlers.DirectoryHandler
	Templates      *handlers.TemplatesHandler
	Playbooks      *handlers.PlaybooksHandler
	Incidents      *handlers.IncidentsHandler
	Tasks          *handlers.TasksHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Catalog mutations (departments, templates,
// playbooks, steps) require admin; incident and task work requires any
// authenticated operator.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/register", cfg.Users.Register)
	app.Post("/auth/login", cfg.Users.Login)

	api := app.Group("", cfg.AuthMiddleware.Handle)
	admin := auth.RequireAdmin()

	departments := api.Group("/departments")
	departments.Get("", cfg.Directory.ListDepartments)
	departments.Get("/:id", cfg.Directory.GetDepartment)
	departments.Get("/:id/members", cfg.Directory.ListMembers)
	departments.Get("/:id/leader", cfg.Directory.GetLeader)
	departments.Post("", admin, cfg.Directory.CreateDepartment)
	departments.Patch("/:id", admin, cfg.Directory.UpdateDepartment)
	departments.Post("/:id/members", admin, cfg.Directory.AddMember)
	departments.Patch("/:id/members/:memberId", admin, cfg.Directory.UpdateMember)

	templates := api.Group("/templates")
	templates.Get("", cfg.Templates.List)
	templates.Get("/:id", cfg.Templates.Get)
	templates.Post("", admin, cfg.Templates.Create)
	templates.Put("/:id", admin, cfg.Templates.Update)

	playbooks := api.Group("/playbooks")
	playbooks.Get("", cfg.Playbooks.List)
	playbooks.Get("/:id", cfg.Playbooks.Get)
	playbooks.Get("/:id/steps", cfg.Playbooks.ListSteps)
	playbooks.Post("", admin, cfg.Playbooks.Create)
	playbooks.Patch("/:id", admin, cfg.Playbooks.Update)
	playbooks.Post("/:id/steps", admin, cfg.Playbooks.AddStep)
	playbooks.Post("/:id/steps/reorder", admin, cfg.Playbooks.ReorderSteps)
	playbooks.Delete("/:id/steps/:stepId", admin, cfg.Playbooks.DeleteStep)

	incidents := api.Group("/incidents")
	incidents.Get("", cfg.Incidents.List)
	incidents.Post("", cfg.Incidents.Create)
	incidents.Get("/:id", cfg.Incidents.Get)
	incidents.Post("/:id/status", cfg.Incidents.UpdateStatus)
	incidents.Get("/:id/tasks", cfg.Incidents.ListTasks)
	incidents.Post("/:id/tasks", cfg.Incidents.CreateTask)

	tasks := api.Group("/tasks")
	tasks.Get("/mine", cfg.Tasks.ListMine)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Post("/:id/advance", cfg.Tasks.Advance)
	tasks.Post("/:id/reassign", cfg.Tasks.Reassign)
	tasks.Post("/:id/evidence", cfg.Tasks.AttachEvidence)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
