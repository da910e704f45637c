package handlers

import (
	"net/http"

	"github.com/geocoder89/statementhub/internal/observability"
	"github.com/gin-gonic/gin"
)

// StatsHandler exposes process-local generation counters for operators.
type StatsHandler struct {
	gen *observability.GenStats
}

func NewStatsHandler(gen *observability.GenStats) *StatsHandler {
	return &StatsHandler{gen: gen}
}

func (h *StatsHandler) Generation(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.gen.Snapshot())
}
