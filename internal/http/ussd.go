package http

import (
	"net/http"
	"strings"

	"github.com/cryptofono/cryptofono/internal/ussd"
	"github.com/cryptofono/cryptofono/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// ussdHandler adapts the gateway's form callback to the session router.
// The gateway retries on non-200, so every failure still answers 200 with a
// terminal message.
func ussdHandler(router *ussd.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		phone := util.NormalizePhone(strings.TrimSpace(c.FormValue("phoneNumber")))
		text := c.FormValue("text")

		if phone == "" {
			return c.String(http.StatusBadRequest, "bad request")
		}

		res, err := router.Handle(c.Request().Context(), phone, text)
		if err != nil {
			log.Errorf("ussd dispatch failed: %v", err)

			return c.String(http.StatusOK, ussd.End("An error occurred. Please try again later.").Render())
		}

		return c.String(http.StatusOK, res.Render())
	}
}
