package router

import (
	"fairmeet/core/middleware"
	"fairmeet/modules/meeting/controller"

	"github.com/labstack/echo/v4"
)

// MeetingRouter handles suggestion and meeting routes
type MeetingRouter struct {
	MeetingController *controller.MeetingController
}

// NewMeetingRouter creates a new router
func NewMeetingRouter(meetingController *controller.MeetingController) *MeetingRouter {
	return &MeetingRouter{
		MeetingController: meetingController,
	}
}

// Setup registers meeting routes
func (r *MeetingRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	meetingRoutes := privateRoutes.Group("/meetings", mw.AuthMiddleware())

	// Suggestions
	meetingRoutes.POST("/suggestions", r.MeetingController.Suggest)
	meetingRoutes.GET("/suggestions/:run_id", r.MeetingController.GetRun)
	meetingRoutes.POST("/confirm", r.MeetingController.Confirm)

	// Confirmed meetings
	meetingRoutes.GET("", r.MeetingController.ListMeetings)
	meetingRoutes.GET("/:id", r.MeetingController.GetMeeting)
}
