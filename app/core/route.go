package core

import "net/http"

// Route is a single endpoint a bundle contributes to the router.
// Public routes are served without a session.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	Public  bool
}

type Bundle interface {
	GetRoutes() []Route
}
