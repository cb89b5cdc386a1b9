package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/scribehq/scribe/internal/observability/obscontext"
)

const (
	contextOwnerIDKey = "owner_id"
	contextRoleKey    = "role"
)

// accessClaims is the bearer token payload. The subject carries the
// owner id; role defaults to "user" when the claim is absent.
type accessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and stores the owner identity
// on the request context. Websocket handshakes may pass the token as a
// query parameter because browser clients cannot set headers there.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.parseAccessToken(token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ownerID := strings.TrimSpace(claims.Subject)
		if ownerID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role := strings.TrimSpace(claims.Role)
		if role == "" {
			role = "user"
		}

		c.Set(contextOwnerIDKey, ownerID)
		c.Set(contextRoleKey, role)
		c.Request = c.Request.WithContext(obscontext.WithOwnerID(c.Request.Context(), ownerID))
		c.Next()
	}
}

func (s *Server) parseAccessToken(token string) (*accessClaims, error) {
	secret := []byte(s.cfg.AuthJWTSecret)
	if len(secret) == 0 {
		return nil, ErrUnauthorized
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(c.Query("token"))
}

func ownerID(c *gin.Context) string {
	return c.GetString(contextOwnerIDKey)
}
