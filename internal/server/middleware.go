package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
)

// HeaderEmployee identifies the caller. Upstream authentication is expected
// to have verified it; this service only resolves it to an employee.
const HeaderEmployee = "X-Employee-ID"

func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderEmployee))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		employee, err := s.tenantSvc.GetEmployee(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorctx.WithActor(c.Request.Context(), actorctx.Actor{
			EmployeeID:  employee.ID,
			IsSuperuser: employee.IsSuperuser,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
