package http

import (
	"net/http"
)

// RealtimeServer upgrades an authenticated request into a push connection.
type RealtimeServer interface {
	ServeClient(w http.ResponseWriter, r *http.Request, userID string)
}

func realtimeHandler(server RealtimeServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		server.ServeClient(w, r, principal.UserID)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
