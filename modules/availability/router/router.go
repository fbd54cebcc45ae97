package router

import (
	"fairmeet/core/middleware"
	"fairmeet/modules/availability/controller"

	"github.com/labstack/echo/v4"
)

type AvailabilityRouter struct {
	AvailabilityController *controller.AvailabilityController
}

func NewAvailabilityRouter(availabilityController *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{
		AvailabilityController: availabilityController,
	}
}

// Setup registers availability routes
func (r *AvailabilityRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	availabilityRoutes := privateRoutes.Group("/availability", mw.AuthMiddleware())

	availabilityRoutes.GET("/profile", r.AvailabilityController.GetProfile)
	availabilityRoutes.PUT("/profile", r.AvailabilityController.SetProfile)

	availabilityRoutes.GET("/windows", r.AvailabilityController.GetWindows)
	availabilityRoutes.PUT("/windows", r.AvailabilityController.ReplaceWindows)

	availabilityRoutes.GET("/overrides", r.AvailabilityController.ListOverrides)
	availabilityRoutes.POST("/overrides", r.AvailabilityController.CreateOverride)
	availabilityRoutes.DELETE("/overrides/:id", r.AvailabilityController.DeleteOverride)

	availabilityRoutes.GET("/effective", r.AvailabilityController.GetEffective)
}
