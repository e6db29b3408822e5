// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MarkupSanitizer はダッシュボードが生成したHTML断片を許可リストで再検査する。
// 商品名やサイト名はテンプレートでエスケープ済みだが、フィードは外部の協力者であるため、
// 出力直前にbluemondayで許可した要素・クラス・リンクだけを通過させる。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// classPattern は許可するclass属性値。ダッシュボードのCSSクラス名のみを想定する。
var classPattern = regexp.MustCompile(`^[a-z][a-z0-9\- ]*$`)

// MarkupSanitizer はbluemondayのポリシーを保持し、スレッドセーフにサニタイズを行う。
type MarkupSanitizer struct {
	policy *bluemonday.Policy
}

// NewMarkupSanitizer はダッシュボード断片用のポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: div, span, p, h2, a
//   - class属性: 英小文字・数字・ハイフン・空白のみ
//   - aタグ: http/httpsの絶対URLのみ。target="_blank" と rel="noopener noreferrer" を自動付与
func NewMarkupSanitizer() *MarkupSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("div", "span", "p", "h2")
	p.AllowAttrs("class").Matching(classPattern).OnElements("div", "span", "p", "h2", "a")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &MarkupSanitizer{
		policy: p,
	}
}

// Sanitize はHTML断片をサニタイズして安全なHTMLを返す。
// 同一入力に対して常に同一出力を返す。
func (s *MarkupSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
