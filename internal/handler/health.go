package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Archive bool   `json:"archive"`
	Events  bool   `json:"events"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports liveness and whether the Postgres archive and Redis sync events are enabled
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy"}
	if h.archive != nil {
		resp.Archive = h.archive.Enabled()
		resp.Events = h.archive.EventsEnabled()
	}
	c.JSON(http.StatusOK, resp)
}
