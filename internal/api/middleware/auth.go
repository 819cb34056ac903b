package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/todoapp/todo-api/internal/core/domain"
)

// SubjectIDKey is the echo context key holding the authenticated user id.
const SubjectIDKey = "subject_id"

// TokenVerifier checks a raw session token and returns its subject id.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// Auth verifies the bearer token and stores the subject id in the context.
// Missing, malformed, badly signed, and expired tokens all fail the same way
// before the handler runs.
func Auth(verifier TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				log.Debug().Str("path", c.Path()).Msg("missing bearer token")
				return unauthenticated()
			}

			subjectID, err := verifier.Verify(raw)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
				return unauthenticated()
			}

			c.Set(SubjectIDKey, subjectID)
			return next(c)
		}
	}
}

// SubjectID returns the id stored by Auth, or "" when the request was not authenticated.
func SubjectID(c echo.Context) string {
	id, _ := c.Get(SubjectIDKey).(string)
	return id
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func unauthenticated() error {
	return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error()).
		SetInternal(domain.ErrUnauthenticated)
}
