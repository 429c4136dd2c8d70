package gateway

import (
	"net/http"

	"github.com/saransh1220/foodhub/internal/gateway/middleware"
)

// Router wraps http.ServeMux and applies the access level of each route.
type Router struct {
	mux  *http.ServeMux
	auth *middleware.AuthMiddleWare
}

func NewRouter(auth *middleware.AuthMiddleWare) *Router {
	return &Router{
		mux:  http.NewServeMux(),
		auth: auth,
	}
}

func (r *Router) Mux() *http.ServeMux {
	return r.mux
}

// Public registers a route that needs no token.
func (r *Router) Public(pattern string, handler http.HandlerFunc) {
	r.mux.Handle(pattern, handler)
}

// User registers a route for any authenticated caller.
func (r *Router) User(pattern string, handler http.HandlerFunc) {
	r.mux.Handle(pattern, r.auth.RequireAuth(handler))
}

// Admin registers a route restricted to the admin role.
func (r *Router) Admin(pattern string, handler http.HandlerFunc) {
	r.mux.Handle(pattern, r.auth.RequireAuth(middleware.RequireRole(handler, middleware.RoleAdmin)))
}
