package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig lists the handlers mounted by NewRouter. Nil handlers leave
// their routes unmounted.
type RouterConfig struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Calendar      *CalendarHandler
	Desks         *DeskHandler
	Threads       *ThreadHandler
	Presence      *PresenceHandler
	Notifications *NotificationHandler
	Realtime      RealtimeServer
	Tokens        TokenValidator
	Metrics       *Metrics
	Logger        *slog.Logger
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/health", healthHandler)

	if cfg.Auth != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.Auth.Login)
			r.Post("/refresh", cfg.Auth.Refresh)
			r.Post("/logout", cfg.Auth.Logout)
		})
	}

	if cfg.Tokens == nil {
		return r
	}

	if cfg.Realtime != nil {
		r.With(RequireAuthAllowQuery(cfg.Tokens, logger)).Get("/ws", realtimeHandler(cfg.Realtime))
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(cfg.Tokens, logger))

		if cfg.Users != nil {
			r.Get("/me", cfg.Users.Me)
			r.Get("/users", cfg.Users.Directory)
		}

		if cfg.Calendar != nil {
			r.Route("/calendar", func(r chi.Router) {
				r.Get("/events", cfg.Calendar.ListEvents)
				r.Post("/events", cfg.Calendar.CreateEvent)
				r.Patch("/events/{id}", cfg.Calendar.UpdateEvent)
				r.Delete("/events/{id}", cfg.Calendar.DeleteEvent)
				r.Get("/blocks", cfg.Calendar.ListBlocks)
				r.Post("/blocks", cfg.Calendar.CreateBlock)
				r.Get("/requests", cfg.Calendar.ListRequests)
				r.Post("/requests", cfg.Calendar.CreateRequest)
				r.Patch("/requests/{id}", cfg.Calendar.DecideRequest)
				r.Get("/active-blocks", cfg.Calendar.ActiveBlocks)
				r.Get("/availability", cfg.Calendar.Availability)
			})
		}

		if cfg.Desks != nil {
			r.Route("/desks", func(r chi.Router) {
				r.Get("/", cfg.Desks.List)
				r.With(RequireAdmin(logger)).Post("/", cfg.Desks.Create)
				r.Post("/{id}/reservations", cfg.Desks.Reserve)
				r.Delete("/reservations/{reservationID}", cfg.Desks.Cancel)
			})
		}

		if cfg.Threads != nil {
			r.Route("/threads", func(r chi.Router) {
				r.Get("/", cfg.Threads.List)
				r.Post("/", cfg.Threads.Create)
				r.Get("/{id}/messages", cfg.Threads.ListMessages)
				r.Post("/{id}/messages", cfg.Threads.CreateMessage)
			})
		}

		if cfg.Presence != nil {
			r.Route("/presence", func(r chi.Router) {
				r.Get("/", cfg.Presence.ListByFloor)
				r.Post("/", cfg.Presence.Upsert)
				r.Get("/users", cfg.Presence.ListByUsers)
			})
		}

		if cfg.Notifications != nil {
			r.Get("/notifications", cfg.Notifications.List)
			r.Post("/notifications/{id}/read", cfg.Notifications.MarkRead)
		}

		if cfg.Users != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin(logger))
				r.Get("/users", cfg.Users.List)
				r.Post("/users", cfg.Users.Create)
				r.Get("/users/{id}", cfg.Users.Get)
				r.Patch("/users/{id}", cfg.Users.Update)
				r.Delete("/users/{id}", cfg.Users.Delete)
				r.Patch("/account/password", cfg.Users.ChangePassword)
			})
		}
	})

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeError(r.Context(), w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", nil)
}
