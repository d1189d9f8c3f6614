package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/servimatch/servimatch/internal/middleware"
	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/internal/services"
	"github.com/servimatch/servimatch/pkg/errors"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/response"
)

// RequestHandler exposes service-request creation, matching, and acceptance.
type RequestHandler struct {
	requests   *services.RequestService
	matcher    *services.MatchService
	dispatcher *services.DispatchService
	log        *zap.Logger
}

// NewRequestHandler constructs a request handler. The dispatcher is optional;
// without it match runs return candidates but never notify.
func NewRequestHandler(requests *services.RequestService, matcher *services.MatchService, dispatcher *services.DispatchService) (*RequestHandler, error) {
	if requests == nil {
		return nil, errors.New("HANDLER_DEPENDENCY", "request service is required", http.StatusInternalServerError)
	}
	if matcher == nil {
		return nil, errors.New("HANDLER_DEPENDENCY", "match service is required", http.StatusInternalServerError)
	}
	return &RequestHandler{
		requests:   requests,
		matcher:    matcher,
		dispatcher: dispatcher,
		log:        logger.WithModule("handlers"),
	}, nil
}

type createRequestPayload struct {
	CategoryID   string   `json:"category_id" validate:"required"`
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=4000"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationText string   `json:"location_text" validate:"max=500"`
	Urgency      string   `json:"urgency"`
	BudgetMin    float64  `json:"budget_min" validate:"min=0"`
	BudgetMax    float64  `json:"budget_max" validate:"min=0"`
}

type acceptRequestPayload struct {
	ProfessionalID string `json:"professional_id" validate:"required"`
}

// dispatchSummary reports the outcome of a match+dispatch run.
type dispatchSummary struct {
	Candidates int  `json:"candidates"`
	Notified   int  `json:"notified"`
	Dispatched bool `json:"dispatched"`
}

// Create persists a new service request and immediately runs match+dispatch
// for it. The dispatch outcome is advisory; a failed fan-out never rolls the
// request back.
func (h *RequestHandler) Create(c *gin.Context) {
	explorerID := c.GetString(middleware.CtxUserIDKey)
	if explorerID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload createRequestPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	request, err := h.requests.Create(requestContext(c), services.CreateRequestInput{
		ExplorerID:   explorerID,
		CategoryID:   payload.CategoryID,
		Title:        payload.Title,
		Description:  payload.Description,
		Latitude:     payload.Latitude,
		Longitude:    payload.Longitude,
		LocationText: payload.LocationText,
		Urgency:      payload.Urgency,
		BudgetMin:    payload.BudgetMin,
		BudgetMax:    payload.BudgetMax,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	summary := h.matchAndDispatch(c, request)
	response.Success(c, http.StatusCreated, gin.H{
		"request":  request,
		"dispatch": summary,
	})
}

// Get returns a single service request.
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// Match re-runs matching for an existing request. With ?dry_run=true the
// ordered candidates are returned without notifying anyone.
func (h *RequestHandler) Match(c *gin.Context) {
	request, err := h.requests.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	if request.Status != models.RequestStatusOpen {
		response.Error(c, errors.ErrRequestClosed)
		return
	}

	if parseBoolQuery(c, "dry_run") {
		candidates, err := h.matcher.FindCandidatesForRequest(requestContext(c), request)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"request_id": request.ID,
			"candidates": candidates,
		})
		return
	}

	summary := h.matchAndDispatch(c, request)
	response.Success(c, http.StatusOK, gin.H{
		"request_id": request.ID,
		"dispatch":   summary,
	})
}

// Accept claims the request for a professional. Losing the first-accept race
// yields a conflict, never a silent reassignment.
func (h *RequestHandler) Accept(c *gin.Context) {
	var payload acceptRequestPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	request, err := h.requests.Accept(requestContext(c), strings.TrimSpace(c.Param("id")), payload.ProfessionalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

func (h *RequestHandler) matchAndDispatch(c *gin.Context, request *models.ServiceRequest) dispatchSummary {
	summary := dispatchSummary{}

	candidates, err := h.matcher.FindCandidatesForRequest(requestContext(c), request)
	if err != nil {
		// The request itself is already persisted; surface the failure in the
		// summary rather than failing the call.
		h.log.Warn("match run failed", zap.String("request_id", request.ID), zap.Error(err))
		return summary
	}
	summary.Candidates = len(candidates)

	if h.dispatcher == nil {
		return summary
	}

	notified, err := h.dispatcher.Dispatch(requestContext(c), request, candidates)
	if err != nil {
		h.log.Warn("dispatch failed", zap.String("request_id", request.ID), zap.Error(err))
		return summary
	}
	summary.Notified = notified
	summary.Dispatched = true
	return summary
}
