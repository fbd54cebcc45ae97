package controller

import (
	"fairmeet/core/controller"
	"fairmeet/core/errors"
	"fairmeet/modules/meeting/dto"
	"fairmeet/modules/meeting/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MeetingController handles suggestion and meeting HTTP requests
type MeetingController struct {
	controller.BaseController
	MeetingService service.MeetingServiceInterface
}

// NewMeetingController creates a new controller
func NewMeetingController(svc service.MeetingServiceInterface) *MeetingController {
	return &MeetingController{
		BaseController: controller.NewBaseController(),
		MeetingService: svc,
	}
}

// Suggest handles POST /meetings/suggestions
// @Summary Rank candidate meeting windows
// @Description Generates, scores and ranks meeting windows for the attendees, reusing an earlier run while their data is unchanged
// @Tags Meeting
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SuggestRequest true "Suggestion request"
// @Success 200 {object} dto.SuggestResponse
// @Failure 400 {object} errors.AppError
// @Failure 401 {object} errors.AppError
// @Router /private/meetings/suggestions [post]
func (c *MeetingController) Suggest(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.SuggestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.MeetingService.Suggest(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// GetRun handles GET /meetings/suggestions/:run_id
// @Summary Get a stored suggestion run
// @Tags Meeting
// @Security BearerAuth
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 200 {object} dto.SuggestResponse
// @Failure 404 {object} errors.AppError
// @Router /private/meetings/suggestions/{run_id} [get]
func (c *MeetingController) GetRun(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.MeetingService.GetRun(ctx.Request().Context(), userID, ctx.Param("run_id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// Confirm handles POST /meetings/confirm
// @Summary Confirm one candidate of a run
// @Tags Meeting
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ConfirmRequest true "Chosen slot"
// @Success 201 {object} dto.MeetingResponse
// @Failure 400 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/meetings/confirm [post]
func (c *MeetingController) Confirm(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.ConfirmRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.MeetingService.Confirm(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, result, "Meeting scheduled successfully")
}

// ListMeetings handles GET /meetings
// @Summary List my meetings
// @Tags Meeting
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.MeetingResponse
// @Router /private/meetings [get]
func (c *MeetingController) ListMeetings(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.MeetingService.ListMeetings(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// GetMeeting handles GET /meetings/:id
// @Summary Get a meeting
// @Tags Meeting
// @Security BearerAuth
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} dto.MeetingResponse
// @Failure 404 {object} errors.AppError
// @Router /private/meetings/{id} [get]
func (c *MeetingController) GetMeeting(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	meetingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid meeting ID")
	}

	result, appErr := c.MeetingService.GetMeeting(ctx.Request().Context(), userID, meetingID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}
