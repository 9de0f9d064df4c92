// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はBot名・説明文・タグ・レビューコメントなどの自由入力から
// マークアップを除去し、プレーンテキストとして保存できる形にする。
// bluemondayのStrictPolicyを使用し、すべてのHTMLタグを取り除く。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由入力テキストのサニタイズ機能のインターフェース。
type TextSanitizerService interface {
	// Sanitize はHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemonday.Policyはスレッドセーフなため、1つのインスタンスを共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses は除去と復号を繰り返す上限回数。
const maxSanitizePasses = 8

// policyEntities はStrictPolicyがテキスト出力時に付与するエンティティのうち、
// マークアップにならないものだけを戻す。
var policyEntities = strings.NewReplacer("&#34;", `"`, "&#39;", "'", "&amp;", "&")

// Sanitize はHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはテキスト中の & や引用符をエンティティに変換するため、
// 保存前に元の文字へ戻す。エンティティで書かれたタグが復号後に
// マークアップとして現れないよう、出力が変化しなくなるまで除去を繰り返す。
// 出力時のエスケープは表示側の責務とする。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	out := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}

	// 収束しない入力は < と > をエンティティのまま残す
	return strings.TrimSpace(policyEntities.Replace(s.policy.Sanitize(out)))
}
