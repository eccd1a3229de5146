package console

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type runner interface {
	Run(ctx context.Context, query string) (*Result, error)
}

// Handler serves POST /sql.
type Handler struct {
	runner runner
}

// NewHandler constructs Handler.
func NewHandler(r runner) *Handler {
	return &Handler{runner: r}
}

type queryRequest struct {
	Query string `json:"query"`
}

// Query godoc
// @Summary Run ad-hoc SQL (admin)
// @Tags Console
// @Accept json
// @Produce json
// @Param payload body queryRequest true "SQL"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.LegacyError
// @Failure 500 {object} response.LegacyError
// @Router /sql [post]
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.runner.Run(c.Request.Context(), req.Query)
	if err != nil {
		response.LegacyFail(c, err)
		return
	}
	if result.Truncated {
		c.Header("X-Console-Truncated", "true")
	}
	response.Legacy(c, http.StatusOK, gin.H{"data": result.Rows})
}
