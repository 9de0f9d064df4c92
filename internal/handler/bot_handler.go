package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/botdir/internal/middleware"
	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/validation"
)

// BotServiceInterface はBotハンドラーが必要とするサービスインターフェース。
type BotServiceInterface interface {
	SubmitBot(ctx context.Context, actor *model.Actor, p validation.SubmissionPayload) (*model.BotDetail, error)
	ValidateApplication(ctx context.Context, actor *model.Actor, applicationID string) (*model.ApplicationInfo, error)
	ListApproved(ctx context.Context) ([]model.BotDetail, error)
	GetApproved(ctx context.Context, applicationID string) (*model.BotDetail, error)
	ListBySubmitter(ctx context.Context, actor *model.Actor) ([]model.BotDetail, error)
	UpdateBot(ctx context.Context, actor *model.Actor, applicationID string, p validation.UpdatePayload) (*model.BotDetail, error)
	DeleteBot(ctx context.Context, actor *model.Actor, applicationID string) error
}

// BotHandler はBot掲載のHTTPハンドラー。
type BotHandler struct {
	service BotServiceInterface
}

// NewBotHandler はBotHandlerを生成する。
func NewBotHandler(service BotServiceInterface) *BotHandler {
	return &BotHandler{service: service}
}

// validateBotRequest はPOST /api/validate-botのリクエストボディ。
type validateBotRequest struct {
	ApplicationID string `json:"applicationId"`
}

// ListBots は承認済みBotの一覧を返す。
// GET /api/bots
func (h *BotHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.service.ListApproved(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBotResponses(bots))
}

// GetBot は承認済みBotの詳細を返す。
// GET /api/bots/{applicationId}
func (h *BotHandler) GetBot(w http.ResponseWriter, r *http.Request) {
	bot, err := h.service.GetApproved(r.Context(), chi.URLParam(r, "applicationId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBotResponse(bot))
}

// SubmitBot はBot登録を処理する。
// POST /api/bots
// ボディのsubmittedByは無視し、投稿者はセッションの実行者とする。
func (h *BotHandler) SubmitBot(w http.ResponseWriter, r *http.Request) {
	var req validation.SubmissionPayload
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	bot, err := h.service.SubmitBot(r.Context(), middleware.ActorFromContext(r.Context()), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBotResponse(bot))
}

// UpdateBot は投稿者によるBot情報の更新を処理する。
// PATCH /api/bots/{applicationId}
func (h *BotHandler) UpdateBot(w http.ResponseWriter, r *http.Request) {
	var req validation.UpdatePayload
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	bot, err := h.service.UpdateBot(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "applicationId"), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBotResponse(bot))
}

// DeleteBot は投稿者によるBot掲載の取り下げを処理する。
// DELETE /api/bots/{applicationId}
func (h *BotHandler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBot(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "applicationId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateBot は登録前にアプリケーションの所有権を確認し、アプリケーション情報を返す。
// POST /api/validate-bot
func (h *BotHandler) ValidateBot(w http.ResponseWriter, r *http.Request) {
	var req validateBotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	app, err := h.service.ValidateApplication(r.Context(), middleware.ActorFromContext(r.Context()), req.ApplicationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

// ListMyBots は実行者が投稿したBotの一覧を承認状態を問わず返す。
// GET /api/user/bots
func (h *BotHandler) ListMyBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.service.ListBySubmitter(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBotResponses(bots))
}
