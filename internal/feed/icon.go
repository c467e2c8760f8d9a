package feed

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxSitePageSize はアイコン探索のために読み込むHTMLの最大サイズ（1MB）。
const maxSitePageSize = 1 << 20

// iconTimeout はアイコン探索のタイムアウト。
const iconTimeout = 5 * time.Second

// IconResolver はフィードのチャンネル画像がない場合に、サイトのアイコンURLを推測する。
// 失敗は空文字列として扱い、エラーは返さない。
type IconResolver struct {
	clients   HTTPClientFactory
	userAgent string
	logger    *slog.Logger
}

// NewIconResolver はIconResolverを生成する。
func NewIconResolver(clients HTTPClientFactory, userAgent string, logger *slog.Logger) *IconResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if userAgent == "" {
		userAgent = "feedclip/1.0"
	}
	return &IconResolver{clients: clients, userAgent: userAgent, logger: logger}
}

// ResolveIcon はサイトURLからアイコンURLを探す。
// HTMLの<link rel="icon">を優先し、なければ/favicon.icoが画像を返すか確認する。
func (r *IconResolver) ResolveIcon(ctx context.Context, siteURL string) string {
	if siteURL == "" {
		return ""
	}
	base, err := url.Parse(siteURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return ""
	}

	if body, ok := r.get(ctx, siteURL, maxSitePageSize); ok {
		if icon := ParseIconLink(body, base); icon != "" {
			return icon
		}
	}

	faviconURL := defaultFaviconURL(base)
	resp, ok := r.probe(ctx, faviconURL)
	if !ok || !isImageContentType(resp) {
		return ""
	}
	return faviconURL
}

// ParseIconLink はHTMLの<head>内からアイコンのlink要素を探し、絶対URLに解決して返す。
func ParseIconLink(htmlBody []byte, base *url.URL) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	var fallback string

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return fallback

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)
			if tagName == "body" {
				return fallback
			}
			if tagName != "link" || !hasAttr {
				continue
			}

			var rel, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(strings.TrimSpace(string(val)))
				case "href":
					href = strings.TrimSpace(string(val))
				}
				if !more {
					break
				}
			}
			if href == "" {
				continue
			}

			resolved := resolveHTTPURL(base, href)
			if resolved == "" {
				continue
			}
			switch rel {
			case "icon", "shortcut icon":
				return resolved
			case "apple-touch-icon":
				if fallback == "" {
					fallback = resolved
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return fallback
			}
		}
	}
}

func (r *IconResolver) get(ctx context.Context, rawURL string, limit int64) ([]byte, bool) {
	resp, ok := r.do(ctx, http.MethodGet, rawURL)
	if !ok {
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		r.logger.Debug("アイコン探索: レスポンス読み取り失敗", slog.String("url", rawURL), slog.String("error", err.Error()))
		return nil, false
	}
	return body, true
}

// probe はURLを取得してボディを捨て、レスポンスヘッダーだけを返す。
func (r *IconResolver) probe(ctx context.Context, rawURL string) (*http.Response, bool) {
	resp, ok := r.do(ctx, http.MethodGet, rawURL)
	if !ok {
		return nil, false
	}
	resp.Body.Close()
	return resp, true
}

// do はSSRF検証後にリクエストを送り、2xxのレスポンスのみ返す。
func (r *IconResolver) do(ctx context.Context, method, rawURL string) (*http.Response, bool) {
	if err := r.clients.ValidateURL(rawURL); err != nil {
		r.logger.Debug("アイコン探索: URL検証で拒否", slog.String("url", rawURL), slog.String("error", err.Error()))
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.clients.NewClient(iconTimeout).Do(req)
	if err != nil {
		r.logger.Debug("アイコン探索: HTTPリクエスト失敗", slog.String("url", rawURL), slog.String("error", err.Error()))
		return nil, false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, false
	}
	return resp, true
}

// defaultFaviconURL はサイトURLから/favicon.icoのURLを組み立てる。
func defaultFaviconURL(base *url.URL) string {
	u := *base
	u.Path = "/favicon.ico"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// resolveHTTPURL は相対URLをベースURLで解決し、http/https以外は空文字列を返す。
func resolveHTTPURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func isImageContentType(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
