package handler

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/repopulse/repopulse/internal/service"
	"github.com/repopulse/repopulse/internal/store"
)

func ErrorHandler(err error, c echo.Context) {
	var validationErr *service.ScheduleValidationError
	var notFoundErr *service.ErrScheduleNotFound

	switch {
	case errors.As(err, &validationErr):
		writeJSONError(c, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		writeJSONError(c, http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeJSONError(c, http.StatusNotFound, "not found")
	case store.IsUniqueConstraintError(err):
		writeJSONError(c, http.StatusConflict, "resource already exists")
	default:
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			message, ok := httpErr.Message.(string)
			if !ok {
				message = http.StatusText(httpErr.Code)
			}
			writeJSONError(c, httpErr.Code, message)
			return
		}
		log.Printf("handler error %s: %+v", c.Request().URL.Path, err)
		writeJSONError(c, http.StatusInternalServerError, "something went terribly wrong")
	}
}

func writeJSONError(c echo.Context, status int, message string) {
	if c.Response().Committed {
		return
	}
	if err := c.JSON(status, map[string]string{"error": message}); err != nil {
		log.Printf("err returning json: %+v", err)
	}
}
