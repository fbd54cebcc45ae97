package router

import (
	"fairmeet/core/middleware"
	"fairmeet/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Google redirects the browser here without a bearer token; the state identifies the user.
	v1.GET("/public/calendar/google/callback", r.controller.GoogleCallback)

	// Private routes (require authentication)
	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	// Calendar connections
	calendarRoutes.GET("/google/auth-url", r.controller.GetGoogleAuthURL)
	calendarRoutes.GET("/connections", r.controller.GetConnections)
	calendarRoutes.DELETE("/connections/:provider", r.controller.DisconnectCalendar)

	// Busy time
	calendarRoutes.POST("/sync", r.controller.RequestSync)
	calendarRoutes.POST("/ics", r.controller.ImportICS)
	calendarRoutes.GET("/busy", r.controller.ListBusy)
}
