package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetKeyPrefix = "password_reset:"

	// 楽観ロックが競合した場合の再試行回数
	maxTxRetries = 5
)

// ErrNotFound はリセット要求レコードが存在しない場合のエラーです。
var ErrNotFound = errors.New("reset request not found")

// Store はリセット要求の状態を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はリセット要求を取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, requestID string) (*Record, error) {
	if requestID == "" {
		return nil, fmt.Errorf("requestID is required")
	}
	data, err := s.rdb.Get(ctx, resetKey(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert はリセット要求を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, resetKey(record.RequestID), payload, s.ttl).Err()
}

// MarkRunning は通知処理の開始を記録します。
func (s *Store) MarkRunning(ctx context.Context, requestID string) error {
	return s.updatePartial(ctx, requestID, func(record *Record) {
		record.Status = StatusRunning
		record.Attempts++
	})
}

// MarkSent は通知完了を記録します。
func (s *Store) MarkSent(ctx context.Context, requestID string) error {
	return s.updatePartial(ctx, requestID, func(record *Record) {
		record.Status = StatusSent
		record.Error = nil
	})
}

// MarkFailed は通知失敗を記録します。
func (s *Store) MarkFailed(ctx context.Context, requestID string, errInfo *ErrorInfo) error {
	return s.updatePartial(ctx, requestID, func(record *Record) {
		record.Status = StatusFailed
		if errInfo != nil {
			record.Error = errInfo
		}
	})
}

// updatePartial は WATCH による楽観ロックでレコードを更新します。TTL は維持します。
func (s *Store) updatePartial(ctx context.Context, requestID string, mutate func(*Record)) error {
	key := resetKey(requestID)
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", ErrNotFound, requestID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		mutate(&record)
		record.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update reset request %s: %w", requestID, redis.TxFailedErr)
}

func resetKey(id string) string {
	return resetKeyPrefix + id
}
