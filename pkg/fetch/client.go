package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shouni/go-listing-scout/pkg/types"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 10 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
	// 検索結果の言語を安定させるための Accept-Language
	AcceptLanguage = "en-US,en;q=0.9"
)

// NonRetryableHTTPError は、リトライしても成功しないHTTPステータスコード
// （404 などの 4xx 系。ただし 429 を除く）を示すカスタムエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
}

func (e *NonRetryableHTTPError) Error() string {
	return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d", e.StatusCode)
}

// RetryableHTTPError は、リトライによって回復しうるHTTPステータスコード
// （429 および 5xx 系）を示すカスタムエラー型です。
type RetryableHTTPError struct {
	StatusCode int
}

func (e *RetryableHTTPError) Error() string {
	return fmt.Sprintf("HTTPステータスコードエラー (リトライ対象): %d", e.StatusCode)
}

// Response は、1回のGETリクエストの成功結果です。
type Response struct {
	Status int
	Body   []byte
}

// Client は、リトライを内包しない一発勝負のHTTP GETを実行します。
// リトライの判断と待機はキューレベルの RetryPolicy が担うため、
// このクライアントは取得と失敗の分類のみに責務を限定しています。
type Client struct {
	httpClient *http.Client
}

// NewClient は、新しい Client を生成します。
// timeout が0以下の場合はデフォルトのタイムアウトが適用されます。
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get は、指定URLへのGETリクエストを1回だけ実行します。
// ステータスコードが 200 以外の場合は、リトライ可否を型で表現した
// エラー（RetryableHTTPError / NonRetryableHTTPError）を返します。
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", AcceptLanguage)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// checkStatus は、HTTPステータスコードをリトライ可否の観点で分類します。
func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		// 429 はレート制限であり、時間を置けば回復しうる
		return &RetryableHTTPError{StatusCode: code}
	case code >= 500 && code <= 599:
		return &RetryableHTTPError{StatusCode: code}
	default:
		return &NonRetryableHTTPError{StatusCode: code}
	}
}

// ClassifyError は、取得エラーを一時的/恒久的に分類します。
// 分類の方針:
//   - 4xx (429除く) と不正URL、DNSの名前解決失敗 → 恒久的
//   - 429/5xx、タイムアウト、接続リセット等のネットワークエラー → 一時的
func ClassifyError(err error) types.ErrorKind {
	if err == nil {
		return types.ErrorKindTransient
	}

	var nonRetryable *NonRetryableHTTPError
	if errors.As(err, &nonRetryable) {
		return types.ErrorKindPermanent
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return types.ErrorKindPermanent
	}

	return types.ErrorKindTransient
}

// ValidateURL は、取得対象URLとして妥当かどうかを事前検証します。
// 不正なURLは恒久エラーであり、リクエストを発行せずに終端させます。
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URLのパースエラー: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("ホストが指定されていないURLです: %s", rawURL)
	}
	return nil
}
