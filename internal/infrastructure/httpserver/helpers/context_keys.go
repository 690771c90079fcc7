package helpers

import (
	"github.com/labstack/echo/v4"
)

// keyServiceSubject holds the sub claim of an authenticated internal caller.
const keyServiceSubject = "service_subject"

func SetServiceSubject(c echo.Context, subject string) { c.Set(keyServiceSubject, subject) }

// GetServiceSubject reports the caller set by the service auth middleware;
// ok is false on routes without it or when auth is disabled.
func GetServiceSubject(c echo.Context) (subject string, ok bool) {
	subject, ok = c.Get(keyServiceSubject).(string)
	return subject, ok && subject != ""
}
