package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/browoko/assessment-api/internal/config"
	"github.com/browoko/assessment-api/internal/handler"
	"github.com/browoko/assessment-api/internal/middleware"
	"github.com/browoko/assessment-api/internal/observability"
	"github.com/browoko/assessment-api/internal/service"
)

// submissionWriteLimit caps lifecycle writes (create, submit, review, upload)
// per caller. Generous enough for any human workflow; it exists to stop
// scripted hammering of the draft/submit endpoints.
const (
	submissionWriteLimit  = 60
	submissionWriteWindow = time.Minute
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TestHandler       *handler.TestHandler
	SubmissionHandler *handler.SubmissionHandler
	CommentHandler    *handler.CommentHandler
	UploadHandler     *handler.UploadHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	reviewGuard := middleware.RequireRole(service.RoleTrainer, service.RoleAdmin)
	adminGuard := middleware.RequireRole(service.RoleAdmin)

	if deps.TestHandler != nil {
		tests := api.Group("/tests", jwtMiddleware)
		deps.TestHandler.Register(tests, adminGuard)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware,
			middleware.RateLimit("submissions", submissionWriteLimit, submissionWriteWindow))
		deps.SubmissionHandler.Register(submissions, reviewGuard)

		if deps.CommentHandler != nil {
			deps.CommentHandler.RegisterNested(submissions, reviewGuard)
		}
		if deps.UploadHandler != nil {
			deps.UploadHandler.Register(submissions)
		}
	}

	if deps.CommentHandler != nil {
		comments := api.Group("/comments", jwtMiddleware)
		deps.CommentHandler.Register(comments)
	}
}
