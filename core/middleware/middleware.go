package middleware

import (
	"errors"
	"strings"
	"time"

	"fairmeet/core/constants"
	"fairmeet/core/controller"
	apperrors "fairmeet/core/errors"
	"fairmeet/core/logger"
	"fairmeet/core/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	controller.BaseController
	jwtSecret string
	jwtIssuer string
}

func NewMiddleware(jwtSecret, jwtIssuer string) *Middleware {
	return &Middleware{
		BaseController: controller.NewBaseController(),
		jwtSecret:      jwtSecret,
		jwtIssuer:      jwtIssuer,
	}
}

// AuthMiddleware validates the bearer token and stores its claims under constants.ContextTokenData.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(constants.AuthorizationHeader)
			if header == "" {
				return m.ErrorResponse(c, apperrors.NewAppError(apperrors.ErrMissingAuthorizationHeader, "Missing authorization header", nil))
			}
			if !strings.HasPrefix(header, constants.BearerPrefix) {
				return m.ErrorResponse(c, apperrors.NewAppError(apperrors.ErrInvalidTokenFormat, "Invalid token format", nil))
			}

			claims, err := utils.ParseToken(strings.TrimPrefix(header, constants.BearerPrefix), m.jwtIssuer, m.jwtSecret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return m.ErrorResponse(c, apperrors.NewAppError(apperrors.ErrTokenExpired, "Token expired", err))
				}
				return m.ErrorResponse(c, apperrors.NewAppError(apperrors.ErrUnauthorized, "Invalid token", err))
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

// RequestLogger logs one line per request.
func (m *Middleware) RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.Info("HTTP:Request",
				"method", req.Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		}
	}
}
