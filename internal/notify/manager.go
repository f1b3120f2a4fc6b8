// Package notify はパスワードリセット通知の受付と非同期配信を提供します。
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/yourusername/userportal/internal/config"
	"github.com/yourusername/userportal/internal/logger"
)

const (
	taskTypePasswordReset = "user:password_reset"
	queueName             = "notifications"
	maxTaskRetry          = 3
)

// recordStore はリセット要求レコードの保存先です。
type recordStore interface {
	Get(ctx context.Context, requestID string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	MarkRunning(ctx context.Context, requestID string) error
	MarkSent(ctx context.Context, requestID string) error
	MarkFailed(ctx context.Context, requestID string, errInfo *ErrorInfo) error
}

// enqueuer は asynq.Client のうち Manager が使う部分です。
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Sender はリセット通知を実際に届けます。
type Sender interface {
	SendPasswordReset(ctx context.Context, payload TaskPayload) error
}

// Recorder は通知結果をメトリクスに記録します。
type Recorder interface {
	RecordResetNotification(outcome string)
}

// Manager はリセット要求の投入と状態管理を担います。
type Manager struct {
	client   enqueuer
	server   *asynq.Server
	mux      *asynq.ServeMux
	store    recordStore
	sender   Sender
	recorder Recorder
	logger   logger.Logger
}

// ManagerOption は Manager の設定を変更します。
type ManagerOption func(*Manager)

// WithSender は通知の送信方法を差し替えます。デフォルトはログ出力のみです。
func WithSender(sender Sender) ManagerOption {
	return func(m *Manager) {
		if sender != nil {
			m.sender = sender
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(recorder Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, store *Store, log logger.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if log == nil {
		log = logger.Nop()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueName: 1,
			},
			Logger: asynqLogger{log: log.Named("asynq")},
		},
	)

	manager := &Manager{
		client: asynq.NewClient(opt),
		server: server,
		mux:    asynq.NewServeMux(),
		store:  store,
		sender: NewLogSender(log),
		logger: log,
	}
	for _, o := range opts {
		o(manager)
	}
	manager.mux.HandleFunc(taskTypePasswordReset, manager.handleResetTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error(context.Background(), "asynq server stopped with error", logger.Error(err))
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.server != nil {
		m.server.Shutdown()
	}
	return m.client.Close()
}

// RequestPasswordReset はリセット要求を記録し、通知タスクをキューに投入します。
func (m *Manager) RequestPasswordReset(ctx context.Context, emailID string) (string, error) {
	if strings.TrimSpace(emailID) == "" {
		return "", errors.New("emailID is required")
	}

	requestID := uuid.NewString()
	record := &Record{
		RequestID: requestID,
		EmailID:   emailID,
		Status:    StatusQueued,
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", fmt.Errorf("save reset request: %w", err)
	}

	body, err := json.Marshal(TaskPayload{RequestID: requestID, EmailID: emailID})
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypePasswordReset, body, asynq.Queue(queueName))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(maxTaskRetry)); err != nil {
		if markErr := m.store.MarkFailed(ctx, requestID, &ErrorInfo{Code: "ENQUEUE_FAILED", Message: err.Error()}); markErr != nil {
			m.logger.Warn(ctx, "failed to mark reset request as failed", logger.String("requestId", requestID), logger.Error(markErr))
		}
		m.record("failed")
		return "", fmt.Errorf("enqueue reset request: %w", err)
	}

	m.record("queued")
	return requestID, nil
}

// GetRecord はリセット要求を取得します。
func (m *Manager) GetRecord(ctx context.Context, requestID string) (*Record, error) {
	return m.store.Get(ctx, requestID)
}

func (m *Manager) handleResetTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode reset payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RequestID == "" {
		return fmt.Errorf("missing requestId in payload: %w", asynq.SkipRetry)
	}

	if err := m.store.MarkRunning(ctx, payload.RequestID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// 期限切れのレコードは再送しない
			m.logger.Warn(ctx, "reset request expired before delivery", logger.String("requestId", payload.RequestID))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := m.sender.SendPasswordReset(ctx, payload); err != nil {
		if markErr := m.store.MarkFailed(ctx, payload.RequestID, &ErrorInfo{Code: "DELIVERY_FAILED", Message: err.Error()}); markErr != nil {
			m.logger.Warn(ctx, "failed to mark reset request as failed", logger.String("requestId", payload.RequestID), logger.Error(markErr))
		}
		m.record("failed")
		return err
	}

	if err := m.store.MarkSent(ctx, payload.RequestID); err != nil {
		return err
	}
	m.record("sent")
	return nil
}

func (m *Manager) record(outcome string) {
	if m.recorder != nil {
		m.recorder.RecordResetNotification(outcome)
	}
}

// asynqLogger は asynq のログを logger.Logger に流します。
type asynqLogger struct {
	log logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprint(args...))
}

func (l asynqLogger) Info(args ...interface{}) {
	l.log.Info(context.Background(), fmt.Sprint(args...))
}

func (l asynqLogger) Warn(args ...interface{}) {
	l.log.Warn(context.Background(), fmt.Sprint(args...))
}

func (l asynqLogger) Error(args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprint(args...))
}

func (l asynqLogger) Fatal(args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprint(args...))
	os.Exit(1)
}
