package controller

import (
	"fairmeet/core/constants"
	"fairmeet/core/controller"
	"fairmeet/core/errors"
	"fairmeet/modules/calendar/dto"
	"fairmeet/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	controller.BaseController
	CalendarService service.CalendarService
}

func NewCalendarController(svc service.CalendarService) *CalendarController {
	return &CalendarController{
		BaseController:  controller.NewBaseController(),
		CalendarService: svc,
	}
}

// GetGoogleAuthURL returns the Google consent URL for the current user
// GET /api/v1/private/calendar/google/auth-url
func (c *CalendarController) GetGoogleAuthURL(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.CalendarService.GetGoogleAuthURL(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// GoogleCallback completes the OAuth flow started by GetGoogleAuthURL
// GET /api/v1/public/calendar/google/callback?state=...&code=...
func (c *CalendarController) GoogleCallback(ctx echo.Context) error {
	if msg := ctx.QueryParam("error"); msg != "" {
		return c.BadRequest(errors.ErrInvalidInput, "Google authorization failed: "+msg)
	}

	result, appErr := c.CalendarService.HandleGoogleCallback(ctx.Request().Context(), ctx.QueryParam("state"), ctx.QueryParam("code"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Google calendar connected")
}

// GetConnections returns all calendar connections for the current user
// GET /api/v1/private/calendar/connections
func (c *CalendarController) GetConnections(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	connections, appErr := c.CalendarService.GetConnections(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, dto.CalendarConnectionListResponse{Connections: connections}, "Success")
}

// DisconnectCalendar disconnects a calendar provider
// DELETE /api/v1/private/calendar/connections/:provider
func (c *CalendarController) DisconnectCalendar(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	if appErr := c.CalendarService.DisconnectCalendar(ctx.Request().Context(), userID, ctx.Param("provider")); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Disconnected successfully")
}

// RequestSync schedules a background free/busy sync
// POST /api/v1/private/calendar/sync
func (c *CalendarController) RequestSync(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.SyncRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
		}
	}
	if req.Days == 0 {
		req.Days = constants.DefaultSyncDays
	}

	result, appErr := c.CalendarService.RequestSync(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Calendar sync scheduled")
}

// ImportICS stores the busy time of an ICS payload
// POST /api/v1/private/calendar/ics
func (c *CalendarController) ImportICS(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.ImportICSRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.CalendarService.ImportICS(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, result, "Busy time imported")
}

// ListBusy returns the current user's busy blocks
// GET /api/v1/private/calendar/busy?from=...&to=...
func (c *CalendarController) ListBusy(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.CalendarService.ListBusy(ctx.Request().Context(), userID, ctx.QueryParam("from"), ctx.QueryParam("to"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}
