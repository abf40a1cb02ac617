package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type balanceResponse struct {
	Credits int64 `json:"credits"`
}

func (s *Server) HandleCreditBalance(c *gin.Context) {
	user, err := s.usersvc.ResolveByExternalID(c.Request.Context(), currentSubject(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.creditsvc.Balance(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balanceResponse{Credits: balance})
}
