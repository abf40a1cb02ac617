package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"go.uber.org/zap"
)

const identitySignatureHeader = "X-Identity-Signature"

// HandleIdentityWebhook consumes identity-provider lifecycle events
// (user.created, user.updated, user.deleted). Deliveries are signed with a
// shared-secret HMAC over the raw body.
func (s *Server) HandleIdentityWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if !s.verifyIdentitySignature(payload, c.GetHeader(identitySignatureHeader)) {
		s.log.Warn("identity webhook signature verification failed")
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorPayload{
			Type:    "invalid_signature",
			Message: "webhook signature verification failed",
		}})
		return
	}

	var event userdomain.LifecycleEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.usersvc.HandleLifecycleEvent(c.Request.Context(), event); err != nil {
		s.log.Error("identity lifecycle event failed",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) verifyIdentitySignature(payload []byte, header string) bool {
	secret := s.cfg.Identity.WebhookSecret
	if secret == "" || header == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	provided := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
