// Package feed はフィードのHTTP取得と解析を提供する。
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedclip/internal/model"
)

// acceptHeader はフィード取得時に送るAcceptヘッダー。
const acceptHeader = "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml;q=0.9, */*;q=0.8"

// HTTPClientFactory はURL検証とHTTPクライアント生成のインターフェース。
// security.SSRFGuardが実装する。
type HTTPClientFactory interface {
	ValidateURL(rawURL string) error
	NewClient(timeout time.Duration) *http.Client
}

// FetchObserver はフェッチ結果の計測を受け取るインターフェース。
type FetchObserver interface {
	RecordHTTPStatus(statusCode int)
	RecordFetchDuration(d time.Duration)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	Timeout      time.Duration
	MaxBodySize  int64
	UserAgent    string
	HostInterval time.Duration
}

// Client はフィードURLへのGETとレスポンスの解析を行う。
// ネットワークエラー・HTTPステータスエラー・解析エラーはすべて呼び出し元に返し、握りつぶさない。
type Client struct {
	clients     HTTPClientFactory
	hostLimiter *HostLimiter
	observer    FetchObserver
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
}

// NewClient はClientを生成する。observerはnilでもよい。
func NewClient(clients HTTPClientFactory, cfg ClientConfig, observer FetchObserver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "feedclip/1.0"
	}
	return &Client{
		clients:     clients,
		hostLimiter: NewHostLimiter(cfg.HostInterval),
		observer:    observer,
		logger:      logger,
		timeout:     cfg.Timeout,
		maxBodySize: cfg.MaxBodySize,
		userAgent:   userAgent,
	}
}

// FetchFeed はフィードを1回GETして解析する。
// 2xx以外は*StatusError、解析失敗とサイズ超過は*ParseErrorを返す。
func (c *Client) FetchFeed(ctx context.Context, feedURL string) (*model.NetworkFeed, error) {
	if err := c.clients.ValidateURL(feedURL); err != nil {
		return nil, fmt.Errorf("URL検証に失敗: %w", err)
	}

	if err := c.hostLimiter.Wait(ctx, feedURL); err != nil {
		return nil, fmt.Errorf("ホスト別レート制限の待機に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)

	start := time.Now()
	resp, err := c.clients.NewClient(c.timeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if c.observer != nil {
		c.observer.RecordHTTPStatus(resp.StatusCode)
		c.observer.RecordFetchDuration(time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: feedURL, StatusCode: resp.StatusCode}
	}

	body, err := c.readBody(resp.Body)
	if err != nil {
		if err == ErrBodyTooLarge {
			return nil, &ParseError{URL: feedURL, Err: err}
		}
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	nf, err := Parse(body)
	if err != nil {
		return nil, &ParseError{URL: feedURL, Err: err}
	}

	c.logger.Debug("フィードを取得しました",
		slog.String("url", feedURL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("articles", len(nf.Articles)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nf, nil
}

// readBody はレスポンスボディを上限サイズまで読み込む。上限を超えた場合はErrBodyTooLargeを返す。
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	if c.maxBodySize <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, c.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
