package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// clientID names the caller for rate limiting: the renter when a session
// resolved, otherwise the client IP.
func clientID(c echo.Context) string {
	if p := Principal(c); p != nil {
		return "renter:" + strconv.FormatUint(p.RenterID, 10)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
