// Package dto はサーバーとクライアントで共有するリクエスト/レスポンスの型を定義します。
// binding タグは Gin のバインディングで使用されます（存在チェックのみ）。
package dto

// SignupRequest は POST /user/signup のリクエストボディです。
// サーバー側は受け取った JSON をそのまま返すため、この型はクライアント側で使用します。
type SignupRequest struct {
	Name     string `json:"name"`
	EmailID  string `json:"emailid"`
	Password string `json:"password"`
}

// LoginRequest は POST /user/login のリクエストボディです。
type LoginRequest struct {
	EmailID  string `json:"emailid" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest は POST /user/forgotpassword のリクエストボディです。
type ForgotPasswordRequest struct {
	EmailID string `json:"emailid" binding:"required"`
}

// Response は成功時の共通レスポンスです。
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// UserSummary はレスポンスに含めるユーザー情報です。パスワードは含めません。
type UserSummary struct {
	EmailID string `json:"emailid"`
}

// LoginResult は /user/login の data 部分です。
type LoginResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// ResetRequested は /user/forgotpassword の data 部分です。
type ResetRequested struct {
	RequestID string `json:"requestId"`
	EmailID   string `json:"emailid"`
}

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
