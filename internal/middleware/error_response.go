package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/botdir/internal/model"
)

// UpstreamRetryAfterSeconds は外部依存障害時にクライアントへ提示する再試行までの秒数。
const UpstreamRetryAfterSeconds = 30

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。検証エラーの場合はフィールド別のエラーも含む。
type ErrorResponseBody struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Category string             `json:"category"`
	Action   string             `json:"action"`
	Fields   []model.FieldError `json:"fields,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Fields:   apiErr.Fields,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	})
}

// WriteUpstreamUnavailable はRetry-After付きの503レスポンスを書き込む。
func WriteUpstreamUnavailable(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(UpstreamRetryAfterSeconds))
	WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewUpstreamUnavailableError())
}
