package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/statementhub/internal/cache"
	"github.com/geocoder89/statementhub/internal/domain/statement"
	"github.com/geocoder89/statementhub/internal/genai"
	"github.com/geocoder89/statementhub/internal/http/middlewares"
	"github.com/geocoder89/statementhub/internal/prompt"
	"github.com/geocoder89/statementhub/internal/utils"
	"github.com/geocoder89/statementhub/internal/workflow"
	"github.com/gin-gonic/gin"
)

type StatementWorkflow interface {
	Submit(ctx context.Context, ownerID string, in statement.Input) (statement.Statement, error)
	List(ctx context.Context, ownerID string, limit int, cursor string) ([]statement.Statement, *string, error)
	Get(ctx context.Context, id, ownerID string) (statement.Statement, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type StatementsHandler struct {
	svc       StatementWorkflow
	listCache cache.Store
}

func NewStatementsHandler(svc StatementWorkflow, listCache cache.Store) *StatementsHandler {
	return &StatementsHandler{
		svc:       svc,
		listCache: listCache,
	}
}

type listResponse struct {
	Items      []statement.Statement `json:"items"`
	Count      int                   `json:"count"`
	NextCursor *string               `json:"nextCursor,omitempty"`
}

// Create runs the full generation workflow. The request context is passed
// straight through, so an abandoned request cancels the in-flight
// generation call and nothing gets persisted.
func (h *StatementsHandler) Create(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || ownerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req statement.GenerateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	rec, err := h.svc.Submit(ctx.Request.Context(), ownerID, req.ToInput())

	if err != nil {
		h.respondSubmitError(ctx, err)
		return
	}

	h.invalidateList(ctx.Request.Context(), ownerID)

	ctx.JSON(http.StatusCreated, rec)
}

func (h *StatementsHandler) respondSubmitError(ctx *gin.Context, err error) {
	var valErr *prompt.ValidationError

	switch {
	case errors.As(err, &valErr):
		fields := make([]FieldError, 0, len(valErr.Fields))
		for _, f := range valErr.Fields {
			fields = append(fields, FieldError{Field: f, Rule: "required", Message: "is required"})
		}
		RespondBadRequest(ctx, "invalid_input", "Missing required statement fields", gin.H{"fields": fields})

	case errors.Is(err, workflow.ErrUnauthorized):
		RespondUnAuthorized(ctx, "unauthorized", "Unknown or invalid user")

	case errors.Is(err, workflow.ErrGenerationFailed):
		h.respondGenerationError(ctx, err)

	default:
		RespondInternal(ctx, "Could not save statement")
	}
}

// respondGenerationError preserves the generation failure reason as an
// error code while keeping the upstream detail out of the response body.
func (h *StatementsHandler) respondGenerationError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, genai.ErrUnavailable):
		RespondServiceUnavailable(ctx, "generation_unavailable", "Statement generation is temporarily unavailable. Please try again.")
	case errors.Is(err, genai.ErrRateLimited):
		RespondBadGateway(ctx, "generation_rate_limited", "Statement generation is rate limited. Please try again shortly.")
	case errors.Is(err, genai.ErrAuth):
		RespondBadGateway(ctx, "generation_auth", "Statement generation is misconfigured.")
	case errors.Is(err, genai.ErrMalformedResponse):
		RespondBadGateway(ctx, "generation_malformed", "Statement generation returned an unusable response. Please try again.")
	default:
		RespondBadGateway(ctx, "generation_failed", "Could not generate statement. Please try again.")
	}
}

func (h *StatementsHandler) List(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || ownerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cursor := ctx.Query("cursor")
	limitParam := ctx.Query("limit")
	limit := 0

	if limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n <= 0 {
			RespondBadRequest(ctx, "invalid_request", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	// only the default first page is cached
	cacheable := h.listCache != nil && cursor == "" && limit == 0
	cacheKey := utils.BuildStatementsListCacheKey(ownerID)

	if cacheable {
		if raw, ok := h.listCache.Get(ctx.Request.Context(), cacheKey); ok {
			var cached listResponse

			if err := json.Unmarshal(raw, &cached); err == nil {
				RespondJSONWithETag(ctx, http.StatusOK, cached)
				return
			}
		}
	}

	items, next, err := h.svc.List(ctx.Request.Context(), ownerID, limit, cursor)

	if err != nil {
		if errors.Is(err, workflow.ErrInvalidCursor) {
			RespondBadRequest(ctx, "invalid_cursor", "The provided cursor is not valid", nil)
			return
		}
		RespondInternal(ctx, "Could not list statements")
		return
	}

	payload := listResponse{
		Items:      items,
		Count:      len(items),
		NextCursor: next,
	}

	if cacheable {
		if raw, err := json.Marshal(payload); err == nil {
			h.listCache.Set(ctx.Request.Context(), cacheKey, raw)
		}
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *StatementsHandler) GetByID(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || ownerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	rec, err := h.svc.Get(ctx.Request.Context(), id, ownerID)

	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			RespondNotFound(ctx, "Statement not found")
			return
		}
		RespondInternal(ctx, "Could not fetch statement")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, rec)
}

func (h *StatementsHandler) Delete(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || ownerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	err := h.svc.Delete(ctx.Request.Context(), id, ownerID)

	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			RespondNotFound(ctx, "Statement not found")
			return
		}
		RespondInternal(ctx, "Could not delete statement")
		return
	}

	h.invalidateList(ctx.Request.Context(), ownerID)

	ctx.Status(http.StatusNoContent)
}

func (h *StatementsHandler) invalidateList(ctx context.Context, ownerID string) {
	if h.listCache != nil {
		h.listCache.Delete(ctx, utils.BuildStatementsListCacheKey(ownerID))
	}
}
