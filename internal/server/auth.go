package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	gatedomain "github.com/rankforge/rankforge/internal/gate/domain"
)

const subjectContextKey = "auth.subject"

// AuthMiddleware validates the identity provider's bearer token and stashes
// the subject claim for handlers. Tokens are HS256-signed with the shared
// secret; the subject id is the external identifier the user resolver keys
// on, never a local id.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, gatedomain.ErrUnauthenticated)
			return
		}

		subject, err := s.parseSubject(token)
		if err != nil || subject == "" {
			AbortWithError(c, gatedomain.ErrUnauthenticated)
			return
		}

		c.Set(subjectContextKey, subject)
		c.Next()
	}
}

func (s *Server) parseSubject(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	return parsed.Claims.GetSubject()
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentSubject(c *gin.Context) string {
	subject, _ := c.Get(subjectContextKey)
	str, _ := subject.(string)
	return str
}
