package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailRequired はメールアドレスが未入力の場合のエラーです。
	ErrEmailRequired = errors.New("email is required")
	// ErrInvalidResponse はレスポンスボディが JSON でない場合のエラーです。
	ErrInvalidResponse = errors.New("invalid JSON response")
)

// HTTPError はサーバーが 2xx 以外を返した場合のエラーです。
// メッセージは "<status>: <status text>" 形式です（例: "404: Not Found"）。
type HTTPError struct {
	StatusCode int
	StatusText string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.StatusText)
}

// TransportError はサーバーに到達できなかった場合のエラーです。
// ネットワーク断や、ブラウザでいう CORS 拒否に相当します。
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "Failed to fetch: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError は err が TransportError を含むかを返します。
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
