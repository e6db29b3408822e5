// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

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
	ErrCodeInvalidSort = "INVALID_SORT"
	ErrCodeNoSnapshot  = "NO_SNAPSHOT"
	ErrCodeFetchFailed = "FETCH_FAILED"
)

// NewInvalidSortError は無効なソートキーのエラーを生成する。
func NewInvalidSortError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("unknown sort key: %s", key),
		Category: "validation",
		Action:   "Use one of percentage, savings or site.",
	}
}

// NewNoSnapshotError はまだ一度もフィード取得に成功していない場合のエラーを生成する。
func NewNoSnapshotError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSnapshot,
		Message:  "price drop data has not been loaded yet",
		Category: "feed",
		Action:   "Wait for the next refresh and try again.",
	}
}

// NewFetchFailedError は直近のフィード取得が失敗している場合のエラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  reason,
		Category: "feed",
		Action:   "Data will be automatically retried on the next refresh.",
	}
}

// --- フィード取得エラー ---
// 3種類とも取得境界で同じように扱う（ログ、状態記録、エラーパネル表示）。

// NetworkError はリクエストの送信または受信が完了しなかったことを表す。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError は2xx以外のレスポンスを表す。
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// ParseError はレスポンスボディがスキーマに合致しないことを表す。
// 一部のフィールドだけが不正でもレスポンス全体を破棄する。
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid price data: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchErrorKind はフィード取得エラーの種別をメトリクス・ログ用の文字列で返す。
func FetchErrorKind(err error) string {
	var netErr *NetworkError
	var httpErr *HTTPError
	var parseErr *ParseError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &httpErr):
		return "http"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "unknown"
	}
}
