// internal/handlers/pipeline.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/utils"
)

type PipelineHandler struct {
	pipelineService *services.PipelineService
}

func NewPipelineHandler(pipelineService *services.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipelineService: pipelineService}
}

// GET /pipeline/stats
func (h *PipelineHandler) Stats(c *gin.Context) {
	stats, err := h.pipelineService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{"stats": stats})
}

// GET /categories
func (h *PipelineHandler) Categories(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"categories": h.pipelineService.Categories(),
	})
}
