package feed

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/hitoshi/feedclip/internal/model"
)

// Parse はRSS/Atom/JSON Feedのボディを解析してNetworkFeedに変換する。
// GUIDもリンクも持たないエントリは除外する。日時は生の文字列のまま保持する。
func Parse(body []byte) (*model.NetworkFeed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	nf := &model.NetworkFeed{
		Title:    strings.TrimSpace(parsed.Title),
		SiteURL:  strings.TrimSpace(parsed.Link),
		Articles: convertItems(parsed.Items),
	}
	if parsed.Image != nil {
		nf.IconURL = strings.TrimSpace(parsed.Image.URL)
	}
	return nf, nil
}

// convertItems はgofeedの記事をNetworkArticleに変換する。
func convertItems(items []*gofeed.Item) []model.NetworkArticle {
	articles := make([]model.NetworkArticle, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		guid := strings.TrimSpace(item.GUID)
		if guid == "" {
			guid = link
		}
		if guid == "" {
			continue
		}

		rawDate := item.Published
		if strings.TrimSpace(rawDate) == "" {
			rawDate = item.Updated
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		articles = append(articles, model.NetworkArticle{
			GUID:         guid,
			Title:        strings.TrimSpace(item.Title),
			Link:         link,
			RawDate:      strings.TrimSpace(rawDate),
			Content:      content,
			ThumbnailURL: extractThumbnail(item),
		})
	}

	return articles
}

// extractThumbnail は記事のサムネイルURLを優先順位に従って取り出す。
// media:thumbnail > media:group内のthumbnail > media:content(画像) > item.Image > 画像のenclosure。
// http/https以外のURLは採用しない。
func extractThumbnail(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		if u := firstAttrURL(media["thumbnail"], nil); u != "" {
			return u
		}
		for _, group := range media["group"] {
			if u := firstAttrURL(group.Children["thumbnail"], nil); u != "" {
				return u
			}
		}
		if u := firstAttrURL(media["content"], isImageMedia); u != "" {
			return u
		}
	}

	if item.Image != nil && isHTTPURL(item.Image.URL) {
		return strings.TrimSpace(item.Image.URL)
	}

	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && isHTTPURL(enc.URL) {
			return strings.TrimSpace(enc.URL)
		}
	}

	return ""
}

// firstAttrURL は条件を満たす最初の要素のurl属性を返す。
func firstAttrURL(elements []ext.Extension, match func(ext.Extension) bool) string {
	for _, e := range elements {
		if match != nil && !match(e) {
			continue
		}
		if u := strings.TrimSpace(e.Attrs["url"]); isHTTPURL(u) {
			return u
		}
	}
	return ""
}

func isImageMedia(e ext.Extension) bool {
	return e.Attrs["medium"] == "image" || strings.HasPrefix(e.Attrs["type"], "image/")
}

func isHTTPURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
