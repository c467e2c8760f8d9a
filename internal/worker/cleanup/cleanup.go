// Package cleanup は孤立した記事の掃除ジョブを提供する。
// 外部キー制約が無効な状態で動いていたデータベースでは、購読の削除後も記事が残ることがある。
// このジョブはそうした記事だけを削除し、存在する購読の記事には触れない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OrphanDeleter は孤立記事の削除インターフェース。store.ArticleStoreが実装する。
type OrphanDeleter interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// CleanupJob は孤立記事の定期削除ジョブ。冪等で、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	articles OrphanDeleter
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(articles OrphanDeleter, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		articles: articles,
		logger:   logger,
	}
}

// Run は孤立記事を削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.articles.DeleteOrphans(ctx)
	if err != nil {
		j.logger.Error("孤立記事の掃除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("孤立記事の掃除に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("孤立記事の掃除ジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
