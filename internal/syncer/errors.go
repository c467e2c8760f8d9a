package syncer

import (
	"errors"
	"fmt"

	"github.com/hitoshi/feedclip/internal/feed"
	"github.com/hitoshi/feedclip/internal/metrics"
)

// RecoverableSyncError は1購読の同期を諦めればよい失敗を表す。
// ネットワークエラー、2xx以外のステータス、解析エラー、同期中の購読削除が該当する。
// 全購読同期ではログに記録して次の購読へ進む。
type RecoverableSyncError struct {
	SubscriptionID int64
	URL            string
	Reason         string
	Err            error
}

// Error はerrorインターフェースを実装する。
func (e *RecoverableSyncError) Error() string {
	return fmt.Sprintf("sync skipped for subscription %d (%s): %v", e.SubscriptionID, e.Reason, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *RecoverableSyncError) Unwrap() error {
	return e.Err
}

// FatalLocalError はローカルストアの障害を表す。呼び出し元まで伝播させる。
type FatalLocalError struct {
	SubscriptionID int64
	Err            error
}

// Error はerrorインターフェースを実装する。
func (e *FatalLocalError) Error() string {
	if e.SubscriptionID == 0 {
		return fmt.Sprintf("local store failure: %v", e.Err)
	}
	return fmt.Sprintf("local store failure for subscription %d: %v", e.SubscriptionID, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *FatalLocalError) Unwrap() error {
	return e.Err
}

// IsRecoverable はerrがRecoverableSyncErrorかどうかを返す。
func IsRecoverable(err error) bool {
	var recoverable *RecoverableSyncError
	return errors.As(err, &recoverable)
}

// IsFatal はerrがFatalLocalErrorかどうかを返す。
func IsFatal(err error) bool {
	var fatal *FatalLocalError
	return errors.As(err, &fatal)
}

// classifyFetchError はフェッチエラーをメトリクスの理由ラベルに分類する。
func classifyFetchError(err error) string {
	var statusErr *feed.StatusError
	var parseErr *feed.ParseError
	switch {
	case errors.As(err, &statusErr):
		return metrics.ReasonHTTPStatus
	case errors.As(err, &parseErr):
		return metrics.ReasonParse
	default:
		return metrics.ReasonNetwork
	}
}
