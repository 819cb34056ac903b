package middleware

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger writes one structured zerolog entry per request. Server
// errors log at error level, client errors at warn, everything else at info.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var evt *zerolog.Event
			switch {
			case v.Status >= 500:
				evt = log.Error().Err(v.Error)
			case v.Status >= 400:
				evt = log.Warn()
			default:
				evt = log.Info()
			}

			if subject := SubjectID(c); subject != "" {
				evt = evt.Str("user_id", subject)
			}

			evt.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
