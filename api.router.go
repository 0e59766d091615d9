package main

import (
	"github.com/julienschmidt/httprouter"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes enforces the full set of api routes. Internal operations
// endpoints are only exposed when enabled by configuration.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = api.NotFound()
	router = api.SetupBookRoutes(router, m)
	router = api.SetupLoanRoutes(router, m)
	router = api.SetupAssetRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		router = api.SetupOpsRoutes(router, m)
	}
	return router
}
