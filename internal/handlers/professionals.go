package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/services"
	"github.com/servimatch/servimatch/pkg/errors"
	"github.com/servimatch/servimatch/pkg/response"
)

// ProfessionalHandler exposes on-demand trust-score operations.
type ProfessionalHandler struct {
	ranking *services.RankingService
}

// NewProfessionalHandler constructs a professional handler.
func NewProfessionalHandler(ranking *services.RankingService) (*ProfessionalHandler, error) {
	if ranking == nil {
		return nil, errors.New("HANDLER_DEPENDENCY", "ranking service is required", http.StatusInternalServerError)
	}
	return &ProfessionalHandler{ranking: ranking}, nil
}

// Rescore recomputes and persists the trust score for one professional.
func (h *ProfessionalHandler) Rescore(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	score, err := h.ranking.Rescore(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"professional_id":    id,
		"verification_score": score,
	})
}

// Breakdown returns the per-component view of a professional's current score
// without persisting anything.
func (h *ProfessionalHandler) Breakdown(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	breakdown, err := h.ranking.Breakdown(requestContext(c), id)
	if err != nil {
		if stderrors.Is(err, services.ErrProfessionalNotFound) {
			response.Error(c, errors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"professional_id": id,
		"breakdown":       breakdown,
	})
}

// RescoreAll recomputes and persists scores for every professional.
func (h *ProfessionalHandler) RescoreAll(c *gin.Context) {
	count, err := h.ranking.RescoreAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rescored": count})
}
