package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// NewRouter mounts the health and admin routes and wraps them in
// middlewares. The first middleware is the outermost.
func NewRouter(admin *AdminHandler, health *HealthHandler, middlewares ...Middleware) http.Handler {
	r := mux.NewRouter()
	health.RegisterRoutes(r)
	admin.RegisterRoutes(r)

	var h http.Handler = r
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
