package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
)

type checkoutRequest struct {
	Package   string `json:"package"`
	SessionID string `json:"session_id"`
}

type checkoutResponse struct {
	PurchaseID string            `json:"purchase_id"`
	Package    string            `json:"package"`
	Credits    int64             `json:"credits"`
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	Metadata   map[string]string `json:"metadata"`
}

// HandleCheckout opens a pending purchase for a credit package. The returned
// metadata is what the client must attach to the provider checkout session;
// the webhook reconciler reads those same keys back to find this purchase.
func (s *Server) HandleCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pkg, ok := creditdomain.PackageByCode(strings.TrimSpace(req.Package))
	if !ok {
		AbortWithError(c, creditdomain.ErrInvalidPackage)
		return
	}

	subject := currentSubject(c)
	user, err := s.usersvc.ResolveByExternalID(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	purchase, err := s.purchases.CreatePending(c.Request.Context(), creditdomain.CreatePurchaseRequest{
		UserID:      user.ID,
		PackageCode: pkg.Code,
		SessionID:   strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{
		PurchaseID: purchase.ID.String(),
		Package:    pkg.Code,
		Credits:    purchase.Credits,
		Amount:     purchase.Amount,
		Currency:   purchase.Currency,
		Metadata: map[string]string{
			"purchase_id": purchase.ID.String(),
			"user_id":     user.ID.String(),
			"subject_id":  subject,
			"credits":     strconv.FormatInt(purchase.Credits, 10),
		},
	})
}
