package store

import (
	"context"
	"log/slog"
)

// watch は初回のスナップショットを送り、その後トピックが変更されるたびに再クエリして送る。
// 購読を先に登録してからクエリするため、初回クエリ中の変更も取りこぼさない。
// 受信側が遅れた場合は古いスナップショットを捨てて最新のものだけを残す。
// ctxが終了するとチャネルを閉じる。
func watch[T any](ctx context.Context, n *Notifier, logger *slog.Logger, name string, query func(context.Context) (T, error), topics ...Topic) <-chan T {
	changed, unsubscribe := n.Subscribe(topics...)
	out := make(chan T, 1)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			snapshot, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("ライブビューのクエリに失敗しました",
					slog.String("view", name),
					slog.String("error", err.Error()),
				)
			} else {
				select {
				case <-out:
				default:
				}
				out <- snapshot
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()

	return out
}
