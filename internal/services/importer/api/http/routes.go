package http

import (
	"net/http"

	"github.com/marcusguelfi/rpg-plataform/internal/platform/httpx"
)

// Route paths served by the importer API.
const (
	RouteImport        = "/api/import"
	RouteImportPrefix  = "/api/import/"
	RouteSystems       = "/api/systems"
	RouteSystemsPrefix = "/api/systems/"
	RouteHealthz       = "/healthz"
)

// NewMux wires importer routes into a mux with the standard middleware
// stack. Submission requires an ADMIN or GM token; job polling requires
// any valid token; system reads and liveness are open.
func NewMux(service *Service, auth AuthConfig) *http.ServeMux {
	mux := http.NewServeMux()
	if service == nil {
		return mux
	}

	base := []httpx.Middleware{httpx.RecoverPanic(), httpx.RequestID()}
	authed := append(append([]httpx.Middleware{}, base...), Authenticate(auth))

	mux.Handle(RouteImport, httpx.Chain(
		http.HandlerFunc(service.HandleSubmitImport),
		append(append([]httpx.Middleware{}, authed...),
			RequireRole(RoleAdmin, RoleGameMaster),
			httpx.RequireMethod(http.MethodPost))...,
	))
	mux.Handle(RouteImportPrefix, httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := trailingSegment(r.URL.Path, RouteImportPrefix)
			if !ok {
				http.NotFound(w, r)
				return
			}
			service.HandleJobStatus(w, r, id)
		}),
		append(append([]httpx.Middleware{}, authed...), httpx.RequireMethod(http.MethodGet))...,
	))
	mux.Handle(RouteSystems, httpx.Chain(
		http.HandlerFunc(service.HandleSystemList),
		append(append([]httpx.Middleware{}, base...), httpx.RequireMethod(http.MethodGet))...,
	))
	mux.Handle(RouteSystemsPrefix, httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug, ok := trailingSegment(r.URL.Path, RouteSystemsPrefix)
			if !ok {
				http.NotFound(w, r)
				return
			}
			service.HandleSystemDetail(w, r, slug)
		}),
		append(append([]httpx.Middleware{}, base...), httpx.RequireMethod(http.MethodGet))...,
	))
	mux.Handle(RouteHealthz, httpx.Chain(
		http.HandlerFunc(service.HandleHealthz),
		append(append([]httpx.Middleware{}, base...), httpx.RequireMethod(http.MethodGet))...,
	))
	return mux
}
