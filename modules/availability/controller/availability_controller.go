package controller

import (
	"fairmeet/core/controller"
	"fairmeet/core/errors"
	"fairmeet/modules/availability/dto"
	"fairmeet/modules/availability/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AvailabilityController struct {
	controller.BaseController
	AvailabilityService service.AvailabilityServiceInterface
}

func NewAvailabilityController(svc service.AvailabilityServiceInterface) *AvailabilityController {
	return &AvailabilityController{
		BaseController:      controller.NewBaseController(),
		AvailabilityService: svc,
	}
}

// GetProfile handles GET /availability/profile
// @Summary Get availability profile
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ProfileResponse
// @Router /private/availability/profile [get]
func (c *AvailabilityController) GetProfile(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.AvailabilityService.GetProfile(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// SetProfile handles PUT /availability/profile
// @Summary Set the caller's time zone
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SetProfileRequest true "IANA time zone"
// @Success 200 {object} dto.ProfileResponse
// @Failure 400 {object} errors.AppError
// @Router /private/availability/profile [put]
func (c *AvailabilityController) SetProfile(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.SetProfileRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.AvailabilityService.SetProfile(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Profile updated successfully")
}

// GetWindows handles GET /availability/windows
// @Summary Get weekly availability template
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.WindowsResponse
// @Router /private/availability/windows [get]
func (c *AvailabilityController) GetWindows(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.AvailabilityService.GetWindows(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// ReplaceWindows handles PUT /availability/windows
// @Summary Replace weekly availability template
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ReplaceWindowsRequest true "Weekly windows"
// @Success 200 {object} dto.WindowsResponse
// @Failure 400 {object} errors.AppError
// @Router /private/availability/windows [put]
func (c *AvailabilityController) ReplaceWindows(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.ReplaceWindowsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.AvailabilityService.ReplaceWindows(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Weekly windows updated successfully")
}

// ListOverrides handles GET /availability/overrides?from=&to=
// @Summary List overrides in a date range
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {array} dto.OverrideResponse
// @Router /private/availability/overrides [get]
func (c *AvailabilityController) ListOverrides(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.AvailabilityService.ListOverrides(ctx.Request().Context(), userID, ctx.QueryParam("from"), ctx.QueryParam("to"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// CreateOverride handles POST /availability/overrides
// @Summary Add or remove availability for a specific span
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateOverrideRequest true "Override"
// @Success 201 {object} dto.OverrideResponse
// @Failure 400 {object} errors.AppError
// @Router /private/availability/overrides [post]
func (c *AvailabilityController) CreateOverride(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.CreateOverrideRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.AvailabilityService.CreateOverride(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, result, "Override created successfully")
}

// DeleteOverride handles DELETE /availability/overrides/:id
// @Summary Delete an override
// @Tags Availability
// @Security BearerAuth
// @Param id path string true "Override ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/availability/overrides/{id} [delete]
func (c *AvailabilityController) DeleteOverride(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	overrideID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid override ID")
	}

	if appErr := c.AvailabilityService.DeleteOverride(ctx.Request().Context(), userID, overrideID); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Override deleted successfully")
}

// GetEffective handles GET /availability/effective?from=&to=
// @Summary Preview effective availability per local date
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} dto.EffectiveResponse
// @Router /private/availability/effective [get]
func (c *AvailabilityController) GetEffective(ctx echo.Context) error {
	userID, err := controller.CurrentUserID(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result, appErr := c.AvailabilityService.GetEffective(ctx.Request().Context(), userID, ctx.QueryParam("from"), ctx.QueryParam("to"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Success")
}
