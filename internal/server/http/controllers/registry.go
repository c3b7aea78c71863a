package controllers

import (
	"github.com/gorilla/mux"

	"github.com/rzbill/filings/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	filings *FilingsController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		filings: NewFilingsController(rt.Service()),
	}
}

// RegisterAllRoutes registers all controller routes on r.
func (c *ControllerRegistry) RegisterAllRoutes(r *mux.Router) {
	c.general.RegisterRoutes(r)
	c.filings.RegisterRoutes(r)
}
