package model

// NetworkFeed は1回のフェッチでパースしたフィードを表す。
// 永続化されることはなく、必ずArticleへのマッピングを経由する。
type NetworkFeed struct {
	Title    string
	IconURL  string
	SiteURL  string
	Articles []NetworkArticle
}

// NetworkArticle はパース直後の記事エントリを表す。
// RawDateはフィード上の日時文字列そのままで、正規化は呼び出し側で行う。
type NetworkArticle struct {
	GUID         string
	Title        string
	Link         string
	RawDate      string
	Content      string
	ThumbnailURL string
}
