package middleware

import (
	"strings"

	"github.com/andresuchdata/stockcount/internal/api/response"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/pkg/auth"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Auth validates a bearer token and stores the resolved actor on the context.
func Auth(cfg auth.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			response.Error(c, apperrors.New(apperrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			response.Error(c, apperrors.Wrap(apperrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if claims.StaffID == "" {
			response.Error(c, apperrors.New(apperrors.CodeUnauthorized, "token has no staff id"))
			return
		}

		c.Set(actorKey, claims.Actor())
		c.Next()
	}
}

// RequireManager rejects callers that may not manage items and orders.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		if !actor.Role.CanManage() {
			response.Error(c, apperrors.Newf(apperrors.CodeForbidden, "role %s may not perform this action", roleLabel(actor.Role)))
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

func roleLabel(r domain.Role) string {
	if r == "" {
		return "anonymous"
	}
	return string(r)
}
