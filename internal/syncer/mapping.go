package syncer

import (
	"strings"

	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/pubdate"
)

// ContentSanitizer は記事本文とURLの無害化インターフェース。
// security.ContentSanitizerが実装する。
type ContentSanitizer interface {
	Sanitize(html string) string
	CleanURL(rawURL string) string
}

// MapArticles はパース結果の記事を保存用の記事に変換する。
// 購読IDを付与し、日時を正規化する。GUIDもリンクもない記事は除外する。
// sanitizerがnilの場合は本文とサムネイルをそのまま使う。
func MapArticles(subscriptionID int64, entries []model.NetworkArticle, sanitizer ContentSanitizer) []model.Article {
	articles := make([]model.Article, 0, len(entries))

	for _, e := range entries {
		guid := strings.TrimSpace(e.GUID)
		if guid == "" {
			guid = strings.TrimSpace(e.Link)
		}
		if guid == "" {
			continue
		}

		content := e.Content
		thumbnail := e.ThumbnailURL
		if sanitizer != nil {
			content = sanitizer.Sanitize(content)
			thumbnail = sanitizer.CleanURL(thumbnail)
		}

		articles = append(articles, model.Article{
			SubscriptionID: subscriptionID,
			GUID:           guid,
			Title:          e.Title,
			Link:           e.Link,
			PubDate:        pubdate.Normalize(e.RawDate),
			Content:        content,
			ThumbnailURL:   thumbnail,
		})
	}

	return articles
}
