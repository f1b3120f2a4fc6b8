package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/userportal/internal/logger"
)

// LogSender はリセット通知をログに出力するだけの Sender です。
// メール送信は実装していません。
type LogSender struct {
	logger logger.Logger
}

// NewLogSender は LogSender を作成します。
func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

// SendPasswordReset は通知内容をログに記録します。
func (s *LogSender) SendPasswordReset(ctx context.Context, payload TaskPayload) error {
	s.logger.Info(ctx, "password reset notice delivered",
		logger.String("requestId", payload.RequestID),
		logger.String("emailid", payload.EmailID),
	)
	return nil
}

// LogNotifier はキューを使わずにリセット要求を受け付けます。
// QUEUE_REDIS_URL が未設定の開発環境で使用します。
type LogNotifier struct {
	logger   logger.Logger
	recorder Recorder
}

// NewLogNotifier は LogNotifier を作成します。recorder は nil でも構いません。
func NewLogNotifier(log logger.Logger, recorder Recorder) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{logger: log, recorder: recorder}
}

// RequestPasswordReset は要求IDを発行してログに記録します。
func (n *LogNotifier) RequestPasswordReset(ctx context.Context, emailID string) (string, error) {
	if strings.TrimSpace(emailID) == "" {
		return "", errors.New("emailID is required")
	}
	requestID := uuid.NewString()
	n.logger.Info(ctx, "password reset requested (queue disabled)",
		logger.String("requestId", requestID),
		logger.String("emailid", emailID),
	)
	if n.recorder != nil {
		n.recorder.RecordResetNotification("sent")
	}
	return requestID, nil
}
