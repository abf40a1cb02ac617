package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gatedomain "github.com/rankforge/rankforge/internal/gate/domain"
)

type toolRequest struct {
	Input string   `json:"input"`
	Items []string `json:"items"`
}

type toolResponse struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}

// HandleToolInvocation is the chargeable tool endpoint. Order matters: the
// rate limiter runs before the credit gate so a throttled request is never
// charged, and the gate debits before the tool runs so a failing tool is
// still charged for the attempt.
func (s *Server) HandleToolInvocation(c *gin.Context) {
	tool := strings.TrimSpace(c.Param("tool"))
	if !gatedomain.KnownTool(tool) {
		AbortWithError(c, gatedomain.ErrUnknownTool)
		return
	}

	var req toolRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	subject := currentSubject(c)

	if res := s.limiter.AllowTool(c.Request.Context(), subject, tool); !res.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
			Type:    "rate_limited",
			Message: "too many requests for this tool",
		}})
		return
	}

	units := int64(len(req.Items))

	result, err := s.gatesvc.Charge(c.Request.Context(), subject, tool, units, func(ctx context.Context) (any, error) {
		return s.runTool(ctx, tool, req)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toolResponse{Tool: tool, Result: result})
}

func (s *Server) runTool(ctx context.Context, tool string, req toolRequest) (any, error) {
	if s.llmsvc == nil {
		return nil, ErrServiceUnavailable
	}

	prompt := buildToolPrompt(tool, req)
	answer, err := s.llmsvc.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return answer, nil
}

func buildToolPrompt(tool string, req toolRequest) string {
	var b strings.Builder
	switch tool {
	case "keyword-research":
		b.WriteString("Suggest keyword variations with estimated difficulty for: ")
	case "backlink-analysis":
		b.WriteString("Summarize the backlink profile quality for: ")
	case "meta-tags":
		b.WriteString("Generate an SEO title and meta description for: ")
	case "ssl-check":
		b.WriteString("Report the TLS configuration issues for: ")
	case "rank-tracker":
		b.WriteString("Estimate ranking positions for these terms: ")
	case "content-brief":
		b.WriteString("Write a content brief covering search intent for: ")
	default:
		b.WriteString("Analyze: ")
	}

	b.WriteString(req.Input)
	if len(req.Items) > 0 {
		b.WriteString(fmt.Sprintf(" [%s]", strings.Join(req.Items, ", ")))
	}
	return b.String()
}
