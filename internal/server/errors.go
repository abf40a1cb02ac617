package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	gatedomain "github.com/rankforge/rankforge/internal/gate/domain"
	paymentdomain "github.com/rankforge/rankforge/internal/payment/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware maps domain errors pushed onto the gin error stack
// into JSON responses. Handlers that have already written a body (the webhook
// ack paths) are left alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, gatedomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Message: "authentication required",
		}
	case errors.Is(err, gatedomain.ErrUserNotProvisioned),
		errors.Is(err, userdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "user_not_provisioned",
			Message: "no account found for this identity",
		}
	case errors.Is(err, creditdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "Insufficient credits. Please purchase more credits to continue.",
		}
	case errors.Is(err, gatedomain.ErrUnknownTool):
		return http.StatusNotFound, errorPayload{
			Type:    "unknown_tool",
			Message: "unknown tool",
		}
	case errors.Is(err, creditdomain.ErrInvalidPackage):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_package",
			Message: "unknown credit package",
		}
	case errors.Is(err, paymentdomain.ErrProviderNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "provider_not_found",
			Message: "unknown payment provider",
		}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "webhook signature verification failed",
		}
	case errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, paymentdomain.ErrPurchaseMissing),
		errors.Is(err, ErrServiceUnavailable):
		// Retryable by the caller: nothing has been committed.
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "temporarily unable to process, retry later",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
