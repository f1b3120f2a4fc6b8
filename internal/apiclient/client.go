// Package apiclient は /user API を呼び出すクライアントヘルパーです。
// JSON リクエストの発行、エラーの正規化、セッションクッキーの管理、
// 認証フロー（Login, Signup, ForgotPassword）を提供します。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/userportal/internal/dto"
	"github.com/yourusername/userportal/internal/logger"
)

// DefaultBaseURL はバックエンドのベース URL です。
const DefaultBaseURL = "http://localhost:5050/"

const networkErrorMessage = "API Error: Network error or CORS issue. Please check backend CORS settings."

// Client は API 呼び出しを行うクライアントです。
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	cookies    CookieStore
	base       *url.URL
	alerter    Alerter
	logger     logger.Logger
	now        func() time.Time
}

// Option は Client の設定を変更します。
type Option func(*Client)

// WithBaseURL はベース URL を設定します。末尾の "/" は補われます。
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL == "" {
			return
		}
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithHTTPClient は使用する http.Client を差し替えます。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout はリクエストごとのタイムアウトを設定します。0 はタイムアウトなしです。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithCookieStore はクッキーストアを設定します。
// 未指定の場合はベース URL に紐づいた JarStore を使います。
func WithCookieStore(store CookieStore) Option {
	return func(c *Client) {
		if store != nil {
			c.cookies = store
		}
	}
}

// WithAlerter はユーザー向け通知の出力先を設定します。
func WithAlerter(alerter Alerter) Option {
	return func(c *Client) {
		if alerter != nil {
			c.alerter = alerter
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// New は Client を作成します。
// http.Client には必ず cookie jar が設定され、サーバーが返したクッキーと
// SetSession で書き込んだクッキーは以降のリクエストで送信されます。
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		alerter:    NewWriterAlerter(nil),
		logger:     logger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if base, err := url.Parse(c.baseURL); err == nil {
		c.base = base
	}

	if c.cookies == nil {
		if jarStore, err := NewJarStore(c.baseURL); err == nil {
			c.cookies = jarStore
		} else {
			c.cookies = NewMemoryStore()
		}
	}

	// credentials: include 相当
	if c.httpClient.Jar == nil {
		hc := *c.httpClient
		if jarStore, ok := c.cookies.(*JarStore); ok {
			hc.Jar = jarStore.Jar()
		} else if jar, err := cookiejar.New(nil); err == nil {
			hc.Jar = jar
		}
		c.httpClient = &hc
	}
	return c
}

// BaseURL は設定されているベース URL を返します。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint はベース URL にパスを連結した URL を返します。
func (c *Client) Endpoint(path string) string {
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// SetSession は expiryDays 日後に失効するクッキーを書き込みます。
func (c *Client) SetSession(name, value string, expiryDays float64) {
	expires := SessionExpiry(c.now(), expiryDays)
	c.cookies.Set(name, value, expires)

	// JarStore 以外のストアは送信用の jar にも書き込む
	if jarStore, ok := c.cookies.(*JarStore); ok && jarStore.Jar() == c.httpClient.Jar {
		return
	}
	if c.httpClient.Jar != nil && c.base != nil {
		c.httpClient.Jar.SetCookies(c.base, []*http.Cookie{{
			Name:    name,
			Value:   value,
			Path:    "/",
			Expires: expires,
		}})
	}
}

// Session はクッキーストアから値を読み出します。
func (c *Client) Session(name string) (string, bool) {
	return c.cookies.Get(name)
}

// CallAPI は JSON リクエストを発行し、レスポンスの JSON を返します。
// POST と PUT の場合のみ body を送信します。失敗はログに記録したうえで必ず呼び出し元に返します。
func (c *Client) CallAPI(ctx context.Context, method, url string, body []byte) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	sentBytes := 0
	if method == http.MethodPost || method == http.MethodPut {
		reader = bytes.NewReader(body)
		sentBytes = len(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, c.fail(ctx, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info(ctx, "API Request",
		logger.String("method", method),
		logger.String("url", url),
		logger.Int("bodyBytes", sentBytes),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, c.fail(ctx, fmt.Errorf("request canceled: %w", err))
		}
		return nil, c.fail(ctx, &TransportError{Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(ctx, &HTTPError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Body:       data,
		})
	}

	if !json.Valid(data) {
		return nil, c.fail(ctx, fmt.Errorf("%w from %s", ErrInvalidResponse, url))
	}

	c.logger.Info(ctx, "API Response", logger.String("url", url), logger.String("data", string(data)))
	return json.RawMessage(data), nil
}

func (c *Client) fail(ctx context.Context, err error) error {
	if IsTransportError(err) {
		c.logger.Error(ctx, networkErrorMessage, logger.Error(err))
	} else {
		c.logger.Error(ctx, "API Error", logger.String("message", err.Error()))
	}
	return err
}

// statusText はステータス行の理由句を返します（例: "404 Not Found" → "Not Found"）。
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// DecodeEnvelope は API の結果を共通レスポンス形式に変換します。
// data に非 nil のポインタを渡すと、data 部分はその型にデコードされます。
func DecodeEnvelope(raw json.RawMessage, data any) (*dto.Response, error) {
	resp := &dto.Response{Data: data}
	if err := json.Unmarshal(raw, resp); err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}
	return resp, nil
}
