// Package router declares every HTTP route of the API together with the
// gates each one requires.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/handler"
	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/model"
)

// Route is one entry of the route table.  Auth puts the route behind the
// authentication gate; a non-empty Roles also puts it behind the
// authorization gate.  Cache names the response cache scope of the route
// and Purges the other scopes a successful write invalidates, because their
// responses embed what the route changes.
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
	Auth    bool
	Roles   []model.Role
	Cache   string
	Purges  []string
	Limit   echo.MiddlewareFunc
}

// Handlers groups the endpoint implementations.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Crops     *handler.CropHandler
	Livestock *handler.LivestockHandler
	Entries   *handler.LogEntryHandler
}

// Gates carries the middleware the route table composes.  GlobalLimit
// guards all of /api and LoginLimit additionally guards login.  A nil
// Cache disables response caching.
type Gates struct {
	Tokens      middleware.TokenVerifier
	Users       middleware.UserLookup
	GlobalLimit echo.MiddlewareFunc
	LoginLimit  echo.MiddlewareFunc
	Cache       *middleware.ResponseCache
}

var adminOnly = []model.Role{model.RoleAdministrator}

// Log entries embed crop and animal summaries; every record embeds a summary
// of its responsible user or author.
var (
	embedsRecords = []string{"registros"}
	embedsUsers   = []string{"cultivos", "ganado", "registros"}
)

// Table returns the API route table.  Paths are relative to /api.
func Table(h Handlers, loginLimit echo.MiddlewareFunc) []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/auth/registro", Handler: h.Auth.Register},
		{Method: http.MethodPost, Path: "/auth/login", Handler: h.Auth.Login, Limit: loginLimit},
		{Method: http.MethodGet, Path: "/auth/me", Handler: h.Auth.Me, Auth: true},
		{Method: http.MethodPut, Path: "/auth/profile", Handler: h.Auth.UpdateProfile, Auth: true, Purges: embedsUsers},
		{Method: http.MethodPut, Path: "/auth/change-password", Handler: h.Auth.ChangePassword, Auth: true},

		{Method: http.MethodGet, Path: "/usuarios", Handler: h.Users.List, Auth: true, Roles: adminOnly},
		{Method: http.MethodGet, Path: "/usuarios/:id", Handler: h.Users.Get, Auth: true, Roles: adminOnly},
		{Method: http.MethodPut, Path: "/usuarios/:id", Handler: h.Users.Update, Auth: true, Roles: adminOnly, Purges: embedsUsers},
		{Method: http.MethodDelete, Path: "/usuarios/:id", Handler: h.Users.Deactivate, Auth: true, Roles: adminOnly, Purges: embedsUsers},
		{Method: http.MethodPut, Path: "/usuarios/:id/password", Handler: h.Users.ResetPassword, Auth: true, Roles: adminOnly},

		{Method: http.MethodGet, Path: "/cultivos", Handler: h.Crops.List, Auth: true, Cache: "cultivos"},
		{Method: http.MethodGet, Path: "/cultivos/:id", Handler: h.Crops.Get, Auth: true, Cache: "cultivos"},
		{Method: http.MethodPost, Path: "/cultivos", Handler: h.Crops.Create, Auth: true, Cache: "cultivos", Purges: embedsRecords},
		{Method: http.MethodPut, Path: "/cultivos/:id", Handler: h.Crops.Update, Auth: true, Cache: "cultivos", Purges: embedsRecords},
		{Method: http.MethodDelete, Path: "/cultivos/:id", Handler: h.Crops.Delete, Auth: true, Cache: "cultivos", Purges: embedsRecords},

		{Method: http.MethodGet, Path: "/ganado", Handler: h.Livestock.List, Auth: true, Cache: "ganado"},
		{Method: http.MethodGet, Path: "/ganado/:id", Handler: h.Livestock.Get, Auth: true, Cache: "ganado"},
		{Method: http.MethodPost, Path: "/ganado", Handler: h.Livestock.Create, Auth: true, Cache: "ganado", Purges: embedsRecords},
		{Method: http.MethodPut, Path: "/ganado/:id", Handler: h.Livestock.Update, Auth: true, Cache: "ganado", Purges: embedsRecords},
		{Method: http.MethodDelete, Path: "/ganado/:id", Handler: h.Livestock.Delete, Auth: true, Cache: "ganado", Purges: embedsRecords},

		{Method: http.MethodGet, Path: "/registros", Handler: h.Entries.List, Auth: true, Cache: "registros"},
		{Method: http.MethodGet, Path: "/registros/:id", Handler: h.Entries.Get, Auth: true, Cache: "registros"},
		{Method: http.MethodPost, Path: "/registros", Handler: h.Entries.Create, Auth: true, Cache: "registros"},
		{Method: http.MethodPut, Path: "/registros/:id", Handler: h.Entries.Update, Auth: true, Cache: "registros"},
		{Method: http.MethodDelete, Path: "/registros/:id", Handler: h.Entries.Delete, Auth: true, Cache: "registros"},
	}
}

// Register mounts the service root, the health check and the API table on e.
func Register(e *echo.Echo, h Handlers, g Gates) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)

	var groupMW []echo.MiddlewareFunc
	if g.GlobalLimit != nil {
		groupMW = append(groupMW, g.GlobalLimit)
	}
	api := e.Group("/api", groupMW...)

	authn := middleware.Authenticate(g.Tokens, g.Users)
	for _, r := range Table(h, g.LoginLimit) {
		api.Add(r.Method, r.Path, r.Handler, chain(r, authn, g.Cache)...)
	}
}

// chain orders the per-route middleware: rate limit, authentication,
// authorization, then the response cache.
func chain(r Route, authn echo.MiddlewareFunc, cache *middleware.ResponseCache) []echo.MiddlewareFunc {
	var mw []echo.MiddlewareFunc
	if r.Limit != nil {
		mw = append(mw, r.Limit)
	}
	if r.Auth {
		mw = append(mw, authn)
	}
	if len(r.Roles) > 0 {
		mw = append(mw, middleware.Authorize(r.Roles))
	}
	switch {
	case cache == nil:
	case r.Cache != "":
		mw = append(mw, cache.For(r.Cache, r.Purges...))
	case len(r.Purges) > 0:
		mw = append(mw, cache.PurgeAfterWrite(r.Purges...))
	}
	return mw
}
