package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/botdir/internal/middleware"
	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/validation"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	SubmitReview(ctx context.Context, actor *model.Actor, applicationID string, p validation.ReviewPayload) (*model.ReviewDetail, error)
	ListByBot(ctx context.Context, applicationID string) ([]model.ReviewDetail, error)
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// ListReviews はBotのレビューを新しい順に返す。
// GET /api/bots/{applicationId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListByBot(r.Context(), chi.URLParam(r, "applicationId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewResponses(reviews))
}

// SubmitReview はレビュー投稿を処理する。
// POST /api/bots/{applicationId}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req validation.ReviewPayload
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	review, err := h.service.SubmitReview(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "applicationId"), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}
