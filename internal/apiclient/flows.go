package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yourusername/userportal/internal/dto"
)

const emailRequiredMessage = "Please enter your email address."

// ResponseHandler は成功したレスポンスを受け取るコールバックです。
type ResponseHandler func(result json.RawMessage)

// ValidateForgotPassword はパスワードリセット要求の入力を検証します。
// 空のメールアドレスは ErrEmailRequired です。
func ValidateForgotPassword(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	return nil
}

// Login は POST user/login を呼び出します。失敗時もアラートは出しません。
func (c *Client) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	return c.postJSON(ctx, "user/login", dto.LoginRequest{EmailID: email, Password: password})
}

// Signup は POST user/signup を呼び出します。
func (c *Client) Signup(ctx context.Context, name, email, password string) (json.RawMessage, error) {
	return c.postJSON(ctx, "user/signup", dto.SignupRequest{Name: name, EmailID: email, Password: password})
}

// ForgotPassword はパスワードリセットを要求します。
// 入力が不正な場合はアラートを 1 回出してリクエストを送りません。
// 成功時は handler を 1 回だけ呼び出し、失敗時は "API Error: <message>" をアラートします。
func (c *Client) ForgotPassword(ctx context.Context, email string, handler ResponseHandler) error {
	if err := ValidateForgotPassword(email); err != nil {
		c.alerter.Alert(emailRequiredMessage)
		return err
	}

	result, err := c.postJSON(ctx, "user/forgotpassword", dto.ForgotPasswordRequest{EmailID: email})
	if err != nil {
		c.alerter.Alert("API Error: " + err.Error())
		return err
	}
	if handler != nil {
		handler(result)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", strings.TrimPrefix(path, "user/"), err)
	}
	return c.CallAPI(ctx, http.MethodPost, c.Endpoint(path), body)
}
