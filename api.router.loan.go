package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupLoanRoutes injects the circulation related api endpoints.
func (api *APIHandler) SetupLoanRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.POST("/v1/loans", m.public(api.BorrowBook))
	router.GET("/v1/loans/:id", m.public(api.GetOneLoan))
	router.POST("/v1/loans/:id/return", m.public(api.ReturnBook))
	router.GET("/v1/borrowers/:id/loans", m.public(api.GetBorrowerLoans))
	return router
}
