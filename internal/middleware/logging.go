package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/telemetry"
)

// RequestLogger writes one logrus entry per request.  5xx responses are
// logged at error level, 4xx at warn.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"status":     v.Status,
				"method":     v.Method,
				"path":       v.URIPath,
				"ip":         v.RemoteIP,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
			})
			if tid := telemetry.TraceID(c.Request().Context()); tid != "" {
				entry = entry.WithField("trace_id", tid)
			}
			if id, ok := IdentityFrom(c); ok {
				entry = entry.WithField("user", id.Username)
			}
			switch {
			case v.Status >= 500:
				entry.WithError(v.Error).Error("request failed")
			case v.Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request")
			}
			return nil
		},
	})
}
