package model

// DefaultCategory は購読作成時に割り当てるカテゴリ。
const DefaultCategory = "General"

// Subscription はフィードの購読を表す。
// 削除すると所属する記事もストレージ層でカスケード削除される。
type Subscription struct {
	ID       int64
	URL      string
	Name     string
	IconURL  string
	Category string
}
