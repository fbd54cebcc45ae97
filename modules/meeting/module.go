package meeting

import (
	"fairmeet/core/cache"
	"fairmeet/core/config"
	"fairmeet/core/database"
	"fairmeet/core/middleware"
	"fairmeet/modules/meeting/controller"
	"fairmeet/modules/meeting/repository"
	"fairmeet/modules/meeting/router"
	"fairmeet/modules/meeting/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the meeting module and registers routes
func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware, c cache.Cache) {
	cfg := config.Get()

	repo := repository.NewMeetingRepository(db)

	var demo *service.DemoFallbackProvider
	if cfg.Demo.Enabled {
		demo = service.NewDemoFallbackProvider(cfg.Demo.PatternsPerWeek)
	}
	loader := service.NewSnapshotLoader(repo, demo)

	svc := service.NewMeetingService(repo, loader, c, service.LimitsFromConfig(cfg.Suggestion))
	ctrl := controller.NewMeetingController(svc)
	rtr := router.NewMeetingRouter(ctrl)

	rtr.Setup(e, mw)
}
