package availability

import (
	"fairmeet/core/config"
	"fairmeet/core/database"
	"fairmeet/core/middleware"
	"fairmeet/modules/availability/controller"
	"fairmeet/modules/availability/repository"
	"fairmeet/modules/availability/router"
	"fairmeet/modules/availability/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the availability module and registers routes
func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware) {
	cfg := config.Get()

	repo := repository.NewAvailabilityRepository(db)
	svc := service.NewAvailabilityService(repo, cfg.Suggestion.MaxRangeDays)
	ctrl := controller.NewAvailabilityController(svc)
	rtr := router.NewAvailabilityRouter(ctrl)

	rtr.Setup(e, mw)
}
