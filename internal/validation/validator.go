// Package validation はBot登録とレビュー投稿の入力検証を提供する。
//
// 検証はDBや外部APIへのアクセスを伴わない純粋関数として実装し、
// 各パイプラインの最初のゲートとして使用する。失敗したフィールドは
// まとめて返すため、呼び出し側はすべての問題を一度に表示できる。
package validation

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/botdir/internal/model"
)

var (
	// snowflakePattern はDiscordのID形式（17〜19桁の数字）。
	snowflakePattern = regexp.MustCompile(`^\d{17,19}$`)
	// httpURLPattern はhttp/httpsスキームのURL。
	httpURLPattern = regexp.MustCompile(`^https?://.+`)
)

var validate = newValidator()

// newValidator はカスタムルールを登録したvalidatorを生成する。
// エラーのフィールド名にはjsonタグの名前を使用する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"snowflake": func(fl validator.FieldLevel) bool {
			return snowflakePattern.MatchString(fl.Field().String())
		},
		"httpurl": func(fl validator.FieldLevel) bool {
			return httpURLPattern.MatchString(fl.Field().String())
		},
		"integral": func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return f == math.Trunc(f)
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("validation: failed to register rule " + tag + ": " + err.Error())
		}
	}

	return v
}

// Result は検証結果を表す。
type Result struct {
	Valid  bool
	Errors []model.FieldError
}

// Err は検証失敗時にVALIDATION_FAILEDのAPIErrorを返す。成功時はnil。
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return model.NewValidationFailedError(r.Errors)
}

// SubmissionPayload はBot登録リクエストのボディ。
type SubmissionPayload struct {
	ApplicationID string   `json:"applicationId" validate:"required,snowflake"`
	Name          string   `json:"name" validate:"required,min=2,max=100"`
	Description   string   `json:"description" validate:"required,min=50,max=1000"`
	Tags          []string `json:"tags" validate:"required,min=1,max=10,dive,required,max=32"`
	Prefix        string   `json:"prefix" validate:"omitempty,max=10"`
	Website       string   `json:"website" validate:"omitempty,httpurl"`
	Support       string   `json:"support" validate:"omitempty,httpurl"`
	GitHub        string   `json:"github" validate:"omitempty,httpurl"`
}

// UpdatePayload はBot情報更新リクエストのボディ。
// ApplicationIDは変更できないため含まない。
type UpdatePayload struct {
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Description string   `json:"description" validate:"required,min=50,max=1000"`
	Tags        []string `json:"tags" validate:"required,min=1,max=10,dive,required,max=32"`
	Prefix      string   `json:"prefix" validate:"omitempty,max=10"`
	Website     string   `json:"website" validate:"omitempty,httpurl"`
	Support     string   `json:"support" validate:"omitempty,httpurl"`
	GitHub      string   `json:"github" validate:"omitempty,httpurl"`
}

// ReviewPayload はレビュー投稿リクエストのボディ。
// 小数の評価値を検出するためRatingはfloat64で受け取る。
type ReviewPayload struct {
	Rating  float64 `json:"rating" validate:"required,integral,gte=1,lte=5"`
	Comment string  `json:"comment" validate:"omitempty,max=1000"`
}

// ValidateSubmission はBot登録ペイロードを検証する。
func ValidateSubmission(p SubmissionPayload) Result {
	return validateStruct(p)
}

// ValidateUpdate はBot情報更新ペイロードを検証する。
func ValidateUpdate(p UpdatePayload) Result {
	return validateStruct(p)
}

// ValidateReview はレビュー投稿ペイロードを検証する。
func ValidateReview(p ReviewPayload) Result {
	return validateStruct(p)
}

// IsSnowflake はDiscordのID形式かどうかを判定する。
func IsSnowflake(id string) bool {
	return snowflakePattern.MatchString(id)
}

// validateStruct は構造体を検証し、フィールドごとに最初のエラーだけを結果に含める。
func validateStruct(s any) Result {
	err := validate.Struct(s)
	if err == nil {
		return Result{Valid: true}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Errors: []model.FieldError{{Field: "body", Message: err.Error()}}}
	}

	seen := make(map[string]bool, len(verrs))
	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := baseField(fe.Field())
		if seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, model.FieldError{Field: field, Message: messageFor(fe.Field(), fe.Tag())})
	}

	return Result{Errors: fields}
}

// baseField はスライス要素のフィールド名（tags[3]）を親フィールド名に戻す。
func baseField(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		return field[:i]
	}
	return field
}
