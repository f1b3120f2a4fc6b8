package notify

import "time"

// Status はリセット要求の処理状態を表します。
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSent    Status = "sent"
	StatusFailed  Status = "error"
)

// ErrorInfo は処理失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record はパスワードリセット要求の現在状態を表します。
type Record struct {
	RequestID string     `json:"requestId"`
	EmailID   string     `json:"emailid"`
	Status    Status     `json:"status"`
	Attempts  int        `json:"attempts"`
	Error     *ErrorInfo `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// TaskPayload はリセット通知タスクのペイロードです。
type TaskPayload struct {
	RequestID string `json:"requestId"`
	EmailID   string `json:"emailid"`
}
