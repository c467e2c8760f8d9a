package feed

import (
	"errors"
	"fmt"
)

// ErrBodyTooLarge はレスポンスボディが上限サイズを超えた場合のエラー。
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError はフィードサーバーが2xx以外のステータスを返した場合のエラー。
type StatusError struct {
	URL        string
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.URL)
}

// ParseError はレスポンスボディをフィードとして解析できなかった場合のエラー。
type ParseError struct {
	URL string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed %s: %v", e.URL, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *ParseError) Unwrap() error {
	return e.Err
}
