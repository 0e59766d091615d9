package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupAssetRoutes injects the book assets related api endpoints.
func (api *APIHandler) SetupAssetRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.POST("/v1/books/:id/assets/:kind/upload", m.public(api.RequestAssetUpload))
	router.POST("/v1/books/:id/assets/:kind/confirm", m.public(api.ConfirmAssetUpload))
	router.GET("/v1/books/:id/assets/:kind", m.public(api.GetAssetReadURL))
	router.DELETE("/v1/books/:id/assets", m.public(api.DeleteBookAssets))
	return router
}
