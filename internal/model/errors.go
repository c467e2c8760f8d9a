// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, feed, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeArticleNotFound      = "ARTICLE_NOT_FOUND"
	ErrCodeInvalidSyncInterval  = "INVALID_SYNC_INTERVAL"
	ErrCodeSyncFailed           = "SYNC_FAILED"
	ErrCodeSyncInProgress       = "SYNC_IN_PROGRESS"
	ErrCodeFeedUnavailable      = "FEED_UNAVAILABLE"
)

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(subscriptionID int64) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %d", subscriptionID),
		Category: "feed",
		Action:   "購読IDを確認してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID int64) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %d", articleID),
		Category: "feed",
		Action:   "記事IDを確認してください。",
	}
}

// NewInvalidSyncIntervalError は同期間隔が範囲外の場合のエラーを生成する。
func NewInvalidSyncIntervalError(hours, min, max int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSyncInterval,
		Message:  fmt.Sprintf("無効な同期間隔です: %d時間", hours),
		Category: "validation",
		Action:   fmt.Sprintf("同期間隔は%d時間から%d時間の範囲で指定してください。", min, max),
	}
}

// NewSyncFailedError はローカルストアの障害で同期が完了できなかった場合のエラーを生成する。
func NewSyncFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSyncFailed,
		Message:  "記事の保存に失敗したため同期を完了できませんでした。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSyncInProgressError は同期の実行中に再度同期を要求された場合のエラーを生成する。
func NewSyncInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeSyncInProgress,
		Message:  "同期は既に実行中です。",
		Category: "system",
		Action:   "同期の完了を待ってから再度お試しください。",
	}
}

// NewFeedUnavailableError はフィードの取得または解析に失敗した場合のエラーを生成する。
func NewFeedUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedUnavailable,
		Message:  fmt.Sprintf("フィードを取得できませんでした: %s", reason),
		Category: "feed",
		Action:   "フィードURLが正しいか、配信元が応答しているか確認してください。",
	}
}
