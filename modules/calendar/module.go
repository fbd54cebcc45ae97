package calendar

import (
	"fairmeet/core/cache"
	"fairmeet/core/config"
	"fairmeet/core/database"
	"fairmeet/core/middleware"
	"fairmeet/core/queue"
	"fairmeet/modules/calendar/controller"
	"fairmeet/modules/calendar/repository"
	"fairmeet/modules/calendar/router"
	"fairmeet/modules/calendar/service"
	"fairmeet/modules/calendar/task"

	"github.com/labstack/echo/v4"
)

// NewService builds the calendar service shared by the HTTP module and the worker.
func NewService(db database.Database, c cache.Cache, enqueuer queue.Enqueuer) service.CalendarService {
	repo := repository.NewCalendarRepository(db)
	google := service.NewGoogleCalendar(config.Get().GoogleAPI)
	return service.NewCalendarService(repo, google, c, enqueuer)
}

// Init initializes the calendar module and registers routes
func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware, c cache.Cache, enqueuer queue.Enqueuer) {
	ctrl := controller.NewCalendarController(NewService(db, c, enqueuer))
	router.NewCalendarRouter(ctrl).Setup(e, mw)
}

// RegisterTasks binds the calendar background handlers to the worker.
func RegisterTasks(w *queue.Worker, db database.Database, c cache.Cache, enqueuer queue.Enqueuer) {
	task.NewSyncBusyHandler(NewService(db, c, enqueuer)).Register(w)
}
