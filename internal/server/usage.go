package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/rankforge/rankforge/internal/usage/domain"
)

const defaultUsagePageSize = 50

type usageResponse struct {
	Usage []usagedomain.ToolUsage `json:"usage"`
}

// HandleUsageHistory returns the caller's most recent tool invocations.
func (s *Server) HandleUsageHistory(c *gin.Context) {
	user, err := s.usersvc.ResolveByExternalID(c.Request.Context(), currentSubject(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit := defaultUsagePageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	records, err := s.usagesvc.History(c.Request.Context(), user.ID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if records == nil {
		records = []usagedomain.ToolUsage{}
	}

	c.JSON(http.StatusOK, usageResponse{Usage: records})
}
