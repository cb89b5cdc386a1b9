package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleWebSocket upgrades an authenticated request into the live event
// connection. One connection per owner: a later handshake replaces the
// earlier one.
func (s *Server) HandleWebSocket(c *gin.Context) {
	if s.hub == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	owner := ownerID(c)
	role := c.GetString(contextRoleKey)

	if err := s.hub.HandleWebSocket(owner, role, c.Writer, c.Request); err != nil {
		s.log.Warn("websocket upgrade failed",
			zap.String("owner_id", owner),
			zap.Error(err),
		)
	}
}
