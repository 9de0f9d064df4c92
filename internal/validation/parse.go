package validation

import (
	"math"
	"strings"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/security"
)

var sanitizer security.TextSanitizerService = security.NewTextSanitizer()

// ParseSubmission はBot登録ペイロードを正規化・検証し、検証済み入力を返す。
// 自由入力はマークアップを除去してから検証する。
// 検証に失敗した場合は nil と失敗したResultを返す。
func ParseSubmission(p SubmissionPayload) (*model.BotSubmission, Result) {
	p.ApplicationID = strings.TrimSpace(p.ApplicationID)
	p.Name = sanitizer.Sanitize(p.Name)
	p.Description = sanitizer.Sanitize(p.Description)
	p.Tags = normalizeTags(p.Tags)
	p.Prefix = sanitizer.Sanitize(p.Prefix)
	p.Website = strings.TrimSpace(p.Website)
	p.Support = strings.TrimSpace(p.Support)
	p.GitHub = strings.TrimSpace(p.GitHub)

	res := ValidateSubmission(p)
	if !res.Valid {
		return nil, res
	}

	return &model.BotSubmission{
		ApplicationID: p.ApplicationID,
		Name:          p.Name,
		Description:   p.Description,
		Tags:          p.Tags,
		Prefix:        p.Prefix,
		Website:       p.Website,
		Support:       p.Support,
		GitHub:        p.GitHub,
	}, res
}

// ParseUpdate はBot情報更新ペイロードを正規化・検証する。
// applicationIDはURLパスから渡され、検証済み入力にそのまま設定される。
func ParseUpdate(applicationID string, p UpdatePayload) (*model.BotSubmission, Result) {
	p.Name = sanitizer.Sanitize(p.Name)
	p.Description = sanitizer.Sanitize(p.Description)
	p.Tags = normalizeTags(p.Tags)
	p.Prefix = sanitizer.Sanitize(p.Prefix)
	p.Website = strings.TrimSpace(p.Website)
	p.Support = strings.TrimSpace(p.Support)
	p.GitHub = strings.TrimSpace(p.GitHub)

	res := ValidateUpdate(p)
	if !res.Valid {
		return nil, res
	}

	return &model.BotSubmission{
		ApplicationID: applicationID,
		Name:          p.Name,
		Description:   p.Description,
		Tags:          p.Tags,
		Prefix:        p.Prefix,
		Website:       p.Website,
		Support:       p.Support,
		GitHub:        p.GitHub,
	}, res
}

// ParseReview はレビュー投稿ペイロードを正規化・検証し、検証済み入力を返す。
func ParseReview(p ReviewPayload) (*model.ReviewInput, Result) {
	p.Comment = sanitizer.Sanitize(p.Comment)

	res := ValidateReview(p)
	if !res.Valid {
		return nil, res
	}

	return &model.ReviewInput{
		Rating:  int(math.Round(p.Rating)),
		Comment: p.Comment,
	}, res
}

// normalizeTags はタグをサニタイズし、空のタグと大文字小文字違いの重複を取り除く。
// 最初に現れた表記を残し、順序は保持する。
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = sanitizer.Sanitize(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
