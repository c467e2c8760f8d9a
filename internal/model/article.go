package model

// Article は永続化された記事を表す。
// GUIDがストア内で一意な論理キーであり、同じGUIDの記事は置き換えられる。
// PubDateはUTCのISO-8601文字列で、解析できなかった場合は空文字列になる。
type Article struct {
	ID             int64
	SubscriptionID int64
	GUID           string
	Title          string
	Link           string
	PubDate        string
	Content        string
	ThumbnailURL   string
}

// ArticleWithSubscription はタイムライン表示用に購読名とアイコンを付与した記事。
type ArticleWithSubscription struct {
	Article
	SubscriptionName    string
	SubscriptionIconURL string
}
