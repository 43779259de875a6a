package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow-api/internal/api/middleware"
)

// routes builds the application router.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.userStore)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notificationService, app.logger)

	var db api.Pinger
	if app.db != nil {
		db = app.db
	}
	healthHandler := api.NewHealthHandler(db, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.CreateTask)
			r.Get("/", taskHandler.ListTasks)
			r.Get("/dashboard", taskHandler.GetDashboard)
			r.Get("/{id}", taskHandler.GetTask)
			r.Put("/{id}", taskHandler.UpdateTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
			r.Get("/{id}/history", taskHandler.GetTaskHistory)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Put("/{id}/read", notificationHandler.MarkRead)
		})
	})

	// The websocket handler authenticates the upgrade itself.
	r.Method(http.MethodGet, "/ws", app.wsHandler)
	r.Get("/health", healthHandler.Health)

	return r
}
