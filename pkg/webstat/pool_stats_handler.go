package webstat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redlinedb/redline/pkg/client"
)

const (
	PoolStatsPath = "/pool"
)

var _ WebHandler = (*PoolStatsHandler)(nil)

// PoolStatsHandler reports the pool's dispatch counters and per-connection
// states as JSON.
type PoolStatsHandler struct {
	Pool *client.Pool
}

func (h *PoolStatsHandler) Path() string {
	return PoolStatsPath
}

func (h *PoolStatsHandler) Method() HttpMethod {
	return GET
}

func (h *PoolStatsHandler) Handler(ctx *gin.Context) {
	if h.Pool == nil {
		ctx.JSON(http.StatusNotFound, ApiResponse{
			Code:    http.StatusNotFound,
			Message: "no pool configured",
		})
		return
	}
	ctx.JSON(http.StatusOK, ApiResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    h.Pool.Stats(),
	})
}
