// Package user は /user 配下のエンドポイント（signup, login, forgotpassword）を提供します。
package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/userportal/internal/dto"
	"github.com/yourusername/userportal/internal/logger"
)

const (
	SessionCookieName  = "up_session"
	sessionKeyUser     = "auth_user"
	sessionKeyToken    = "auth_token"
	sessionKeyIssuedAt = "issued_at"

	MessageSignupSuccessful = "Signup successful"
	MessageLoginSuccessful  = "Login successful"
	MessageResetRequested   = "Password reset requested"

	// MaxBodyBytes はリクエストボディの上限（100kb）です。
	MaxBodyBytes = 100 * 1024
)

// ResetNotifier はパスワードリセット要求を受け付けます。
type ResetNotifier interface {
	RequestPasswordReset(ctx context.Context, emailID string) (string, error)
}

// Handler は /user 配下のハンドラーをまとめた構造体です。
type Handler struct {
	notifier ResetNotifier
	logger   logger.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(notifier ResetNotifier, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		notifier: notifier,
		logger:   log,
	}
}

// Register は /user グループにルートを登録します。
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/signup", h.Signup)
	group.POST("/login", h.Login)
	group.POST("/forgotpassword", h.ForgotPassword)
}

// Signup は POST /user/signup のハンドラーです。
// 受け取った JSON をそのまま data に入れて返します。保存や検証は行いません。
func (h *Handler) Signup(c *gin.Context) {
	limitBody(c)
	body, err := c.GetRawData()
	if err != nil {
		if isTooLarge(err) {
			respondTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "リクエストボディを読み込めませんでした",
		})
		return
	}

	payload, ok := echoPayload(body)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "JSON オブジェクトを送ってください",
		})
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Message: MessageSignupSuccessful,
		Data:    payload,
	})
}

// echoPayload はボディを JSON として検証し、そのまま返せる形にします。
// 空のボディは {} として扱い、トップレベルがオブジェクト/配列以外の場合は拒否します。
func echoPayload(body []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("{}"), true
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, false
	}
	if !json.Valid(trimmed) {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

// Login は POST /user/login のハンドラーです。
// 資格情報の検証は行わず、トークンを発行してセッションに保存します。
func (h *Handler) Login(c *gin.Context) {
	limitBody(c)
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			respondTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "emailid と password を JSON で送ってください",
		})
		return
	}

	token := uuid.NewString()

	if previous, ok := SessionUser(c); ok {
		h.logger.Debug(c.Request.Context(), "replacing existing session", logger.String("previous", previous))
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUser, req.EmailID)
	session.Set(sessionKeyToken, token)
	session.Set(sessionKeyIssuedAt, time.Now().Unix())
	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "failed to save session", logger.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    "SESSION_SAVE_FAILED",
			Message: "セッションの保存に失敗しました",
		})
		return
	}

	h.logger.Info(c.Request.Context(), "login session issued", logger.String("emailid", req.EmailID))
	c.JSON(http.StatusOK, dto.Response{
		Message: MessageLoginSuccessful,
		Data: dto.LoginResult{
			Token: token,
			User:  dto.UserSummary{EmailID: req.EmailID},
		},
	})
}

// ForgotPassword は POST /user/forgotpassword のハンドラーです。
func (h *Handler) ForgotPassword(c *gin.Context) {
	limitBody(c)
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			respondTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "emailid を JSON で送ってください",
		})
		return
	}

	if h.notifier == nil {
		h.logger.Error(c.Request.Context(), "password reset notifier is not configured")
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Code:    "RESET_DISPATCH_FAILED",
			Message: "パスワードリセットの受付に失敗しました",
		})
		return
	}

	requestID, err := h.notifier.RequestPasswordReset(c.Request.Context(), req.EmailID)
	if err != nil {
		h.logger.Error(c.Request.Context(), "failed to dispatch password reset", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Code:    "RESET_DISPATCH_FAILED",
			Message: "パスワードリセットの受付に失敗しました",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.Response{
		Message: MessageResetRequested,
		Data: dto.ResetRequested{
			RequestID: requestID,
			EmailID:   req.EmailID,
		},
	})
}

func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func respondTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
		Code:    "PAYLOAD_TOO_LARGE",
		Message: "リクエストボディが大きすぎます",
	})
}
