// Package store は永続化リポジトリの上に変更通知とライブビューを提供する。
// 書き込みはここを経由させ、読み手は変更通知を受けて再クエリする。
package store

import "sync"

// Topic は変更通知の対象となるテーブルの種類。
type Topic string

const (
	TopicArticles      Topic = "articles"
	TopicSubscriptions Topic = "subscriptions"
	TopicSettings      Topic = "settings"
)

type listener struct {
	ch     chan struct{}
	topics []Topic
}

// Notifier はトピック単位の変更通知を配送する。
// 通知は容量1のチャネルで合流するため、Publishは購読者の処理速度に関係なくブロックしない。
type Notifier struct {
	mu        sync.Mutex
	listeners map[Topic]map[*listener]struct{}
}

// NewNotifier はNotifierを生成する。
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[Topic]map[*listener]struct{})}
}

// Subscribe はいずれかのトピックが変更されたときにシグナルを受け取るチャネルを返す。
// 返された関数で購読を解除する。解除後にチャネルへ送信されることはない。
func (n *Notifier) Subscribe(topics ...Topic) (<-chan struct{}, func()) {
	l := &listener{ch: make(chan struct{}, 1), topics: topics}

	n.mu.Lock()
	for _, t := range topics {
		set, ok := n.listeners[t]
		if !ok {
			set = make(map[*listener]struct{})
			n.listeners[t] = set
		}
		set[l] = struct{}{}
	}
	n.mu.Unlock()

	var once sync.Once
	return l.ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for _, t := range l.topics {
				delete(n.listeners[t], l)
			}
		})
	}
}

// Publish はトピックの購読者に変更を通知する。
func (n *Notifier) Publish(topics ...Topic) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, t := range topics {
		for l := range n.listeners[t] {
			select {
			case l.ch <- struct{}{}:
			default:
			}
		}
	}
}

// listenerCount はトピックの購読者数を返す。テスト用。
func (n *Notifier) listenerCount(topic Topic) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners[topic])
}
