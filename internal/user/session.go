package user

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionOptions はログインセッション用クッキーの設定です。
type SessionOptions struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

// SessionMiddleware は署名付きクッキーストアのセッションミドルウェアを返します。
func SessionMiddleware(opts SessionOptions) gin.HandlerFunc {
	store := cookie.NewStore([]byte(opts.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return sessions.Sessions(SessionCookieName, store)
}

// SessionUser はセッションに保存されたログインユーザーを返します。
// 値の取り出しのみで、有効性の検証は行いません。
func SessionUser(c *gin.Context) (string, bool) {
	user, ok := sessions.Default(c).Get(sessionKeyUser).(string)
	return user, ok && user != ""
}
