package middleware

import (
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"campusconnect/internal/dto"
	"campusconnect/internal/session"
)

func LoggingMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		ev := zlog.Logger.Info()
		if c.Writer.Status() >= 500 {
			ev = zlog.Logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Sessions resolves the session cookie into a principal on the request
// context. Requests without a valid session pass through anonymously.
func Sessions(m *session.Manager) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		s, err := m.Load(c.Request)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to load session")
			dto.InternalServerError(c)
			return
		}
		if s != nil {
			p := s.Principal
			c.Request = c.Request.WithContext(session.WithPrincipal(c.Request.Context(), &p))
		}
		c.Next()
	}
}

func RequireAuth() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		if session.PrincipalFrom(c.Request.Context()) == nil {
			dto.UnauthorizedError(c, dto.MsgUnauthenticated)
			return
		}
		c.Next()
	}
}

func RequireAdmin() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		p := session.PrincipalFrom(c.Request.Context())
		if p == nil {
			dto.UnauthorizedError(c, dto.MsgUnauthenticated)
			return
		}
		if !p.IsAdmin() {
			dto.ForbiddenError(c)
			return
		}
		c.Next()
	}
}
