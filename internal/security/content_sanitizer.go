package security

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は記事本文のHTMLとフィード由来のURLを無害化する。
// フィードの内容は信頼できない入力として扱い、保存前に必ず通す。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// bluemondayのUGCポリシーを基に、リンクには target="_blank" と
// rel="nofollow noreferrer noopener" を付与し、相対URLは拒否する。
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowRelativeURLs(false)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowElements("figure", "figcaption")

	return &ContentSanitizer{policy: p}
}

// Sanitize はHTMLから script/style/iframe や on* 属性などを取り除いた安全なHTMLを返す。
// 空文字列の入力には空文字列を返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(rawHTML))
}

// CleanURL はhttp/httpsの絶対URLだけを通し、それ以外は空文字列を返す。
// サムネイルやアイコンのURLに javascript: や data: が入り込むのを防ぐ。
func (s *ContentSanitizer) CleanURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
