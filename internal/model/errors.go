// Package model はドメインモデルを定義する。
package model

import "fmt"

// FieldError は入力フィールド単位の検証エラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string       // エラーコード
	Message  string       // エラーメッセージ
	Category string       // カテゴリ: auth, validation, bot, review, system
	Action   string       // ユーザー向け対処方法
	Fields   []FieldError // 検証エラーの場合のフィールド別エラー
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	ErrCodeAlreadyReviewed     = "ALREADY_REVIEWED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeOwnershipUnverified = "OWNERSHIP_UNVERIFIED"
	ErrCodeAppUnverified       = "APPLICATION_UNVERIFIED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeBotNotFound         = "BOT_NOT_FOUND"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewValidationFailedError は入力検証エラーを生成する。
// fieldsには失敗した全フィールドのエラーを渡す。
func NewValidationFailedError(fields []FieldError) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "Validation failed",
		Category: "validation",
		Action:   "Correct the highlighted fields and submit again.",
		Fields:   fields,
	}
}

// NewDuplicateSubmissionError は同一Application IDのBotが登録済みの場合のエラーを生成する。
func NewDuplicateSubmissionError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSubmission,
		Message:  fmt.Sprintf("Bot with this Application ID already exists: %s", applicationID),
		Category: "bot",
		Action:   "Search the directory for the existing listing instead of submitting it again.",
	}
}

// NewAlreadyReviewedError は同一ユーザーが同じBotを再レビューしようとした場合のエラーを生成する。
func NewAlreadyReviewedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReviewed,
		Message:  "You have already reviewed this bot",
		Category: "review",
		Action:   "Each user can post one review per bot.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "Log in with Discord and try again.",
	}
}

// NewOwnershipUnverifiedError はBotの所有権を確認できなかった場合のエラーを生成する。
func NewOwnershipUnverifiedError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeOwnershipUnverified,
		Message:  fmt.Sprintf("Invalid Discord Application ID or insufficient permissions: %s", applicationID),
		Category: "bot",
		Action:   "Submit an application you own, or ask a team owner or admin to submit it.",
	}
}

// NewApplicationUnverifiedError は登録前確認でアプリケーションを解決できなかった場合のエラーを生成する。
// 登録時の所有権エラーと異なり、入力の誤りとして扱う。
func NewApplicationUnverifiedError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeAppUnverified,
		Message:  fmt.Sprintf("Invalid Discord Application ID or insufficient permissions: %s", applicationID),
		Category: "validation",
		Action:   "Check the Application ID, or ask a team owner or admin to submit it.",
		Fields: []FieldError{
			{Field: "applicationId", Message: "Application could not be verified for your account"},
		},
	}
}

// NewForbiddenError は操作権限がない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You are not allowed to modify this bot",
		Category: "auth",
		Action:   "Only the user who submitted the bot can change it.",
	}
}

// NewBotNotFoundError はBotが見つからない場合のエラーを生成する。
// 未承認のBotも公開APIからは見つからない扱いとする。
func NewBotNotFoundError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeBotNotFound,
		Message:  fmt.Sprintf("Bot not found: %s", applicationID),
		Category: "bot",
		Action:   "Check the Application ID.",
	}
}

// NewUpstreamUnavailableError はDBや外部サービスに到達できない場合のエラーを生成する。
// 詳細はログにのみ記録し、呼び出し元には汎用メッセージを返す。
func NewUpstreamUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  "A backing service is temporarily unavailable",
		Category: "system",
		Action:   "Wait a moment and retry.",
	}
}
