package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/middleware"
	"github.com/iliyamo/shop-management/internal/service"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	DataFound  *int                `json:"data_found,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
	Data       any                 `json:"data,omitempty"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func paged[T any](c echo.Context, message string, p service.Page[T]) error {
	found := p.Total
	return c.JSON(http.StatusOK, envelope{
		Success:    true,
		Message:    message,
		DataFound:  &found,
		Pagination: &p.Pagination,
		Data:       p.Items,
	})
}

// pageRequest reads search, page and limit from the query string.
func pageRequest(c echo.Context) service.PageRequest {
	return service.NewPageRequest(c.QueryParam("search"), c.QueryParam("page"), c.QueryParam("limit"))
}

// bind decodes the JSON body only; path and query values never leak into
// the input.
func bind(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperr.Validation("", "Invalid request body")
	}
	return nil
}

func identity(c echo.Context) (auth.Identity, error) { return middleware.MustIdentity(c) }

// ErrorHandler writes {success:false, message} with the status of the
// error's kind.  Internal causes are logged, never sent.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			msg    string
			he     *echo.HTTPError
		)
		switch {
		case errors.Is(err, echo.ErrNotFound):
			status, msg = http.StatusNotFound, "Route not found!"
		case errors.As(err, &he):
			status, msg = he.Code, http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
		default:
			ae := apperr.As(err)
			status, msg = ae.Status(), ae.Message
			if ae.Kind == apperr.KindInternal {
				log.WithError(err).WithFields(logrus.Fields{
					"method": c.Request().Method,
					"path":   c.Path(),
				}).Error("internal error")
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, envelope{Success: false, Message: msg})
		}
		if err != nil {
			log.WithError(err).Warn("failed to write error response")
		}
	}
}
