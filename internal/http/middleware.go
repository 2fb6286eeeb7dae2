package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"auth-portal/internal/auth"
)

// RouteGuard decides whether a request path requires an active session.
type RouteGuard struct {
	protected []string
	loginPath string
}

func NewRouteGuard(protected []string, loginPath string) *RouteGuard {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &RouteGuard{protected: protected, loginPath: loginPath}
}

// Decide is the pure guard predicate: allow the request, or redirect an
// unauthenticated one to the login path. It never mutates session state.
func (g *RouteGuard) Decide(path string, authenticated bool) (allow bool, redirectTo string) {
	for _, prefix := range g.protected {
		if strings.HasPrefix(path, prefix) {
			if authenticated {
				return true, ""
			}
			return false, g.loginPath
		}
	}
	return true, ""
}

// Middleware enforces the guard decision. The session is read through the
// gateway's per-request cache, so it is evaluated at most once even when
// handlers also consult it.
func (g *RouteGuard) Middleware(gateway *auth.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, authenticated := gateway.CurrentSession(c)
		allow, redirectTo := g.Decide(c.Request.URL.Path, authenticated)
		if !allow {
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
