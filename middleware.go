package main

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"onlab_backend/app/core"
)

var errAccountLocked = errors.New("account is deactivated")

func newRouter(bundles []core.Bundle, sessions core.SessionStore) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1/")
	if core.Config.Server.Hostname != "" {
		api = r.Host(core.Config.Server.Hostname).PathPrefix("/api/v1/")
	}
	s := api.Subrouter()

	routes := 0
	for _, b := range bundles {
		for _, route := range b.GetRoutes() {
			s.Handle(route.Path, middleWare(sessions, route)).Methods(route.Method)
			routes++
		}
	}
	core.Logger.Debug("routes added", zap.Int("count", routes))

	if core.Config.Server.DeliverFrontEnd {
		deliverFrontEnd(core.Config.Server.FrontEndPath, r)
	}
	return r
}

// statusWriter remembers the response status for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// middleWare rejects requests without a session on non public routes and
// requests of locked accounts, then logs every request.
func middleWare(sessions core.SessionStore, route core.Route) http.Handler {
	c := core.Controller{Sessions: sessions}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		var userId uint
		user, err := c.LookupUser(r)
		if err != nil && !errors.Is(err, core.ErrNotAuthorized) && !errors.Is(err, core.ErrSessionInvalid) {
			core.Logger.Warn("session lookup failed", zap.Error(err))
		}
		if user != nil {
			userId = user.ID
		}

		switch {
		case route.Public || r.Method == http.MethodOptions:
			route.Handler.ServeHTTP(sw, r)
		case user == nil:
			c.HandleUnauthorizedError(core.ErrNotAuthorized, sw)
		case !user.IsActive:
			c.HandleAccountLockedError(errAccountLocked, sw)
		default:
			route.Handler.ServeHTTP(sw, r)
		}

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		core.Logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
			zap.Uint("user_id", userId))
	})
}

// deliverFrontEnd serves the single page app. Unknown paths get index.html so
// the client side router can handle them.
func deliverFrontEnd(frontendOSPath string, r *mux.Router) {
	if frontendOSPath == "" {
		frontendOSPath = "./"
	}
	index := filepath.Join(frontendOSPath, "index.html")

	r.PathPrefix("/").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rel := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+req.URL.Path)), "/"))
		path := filepath.Join(frontendOSPath, rel)

		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, req, index)
			return
		}
		http.ServeFile(w, req, path)
	})
}
