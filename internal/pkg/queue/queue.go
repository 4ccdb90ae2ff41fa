package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 通知类型
const (
	NoticeActivation = "activation"
	NoticeRejection  = "rejection"
)

// NoticeMessage 待发送给 subject 的通知
type NoticeMessage struct {
	Kind         string     `json:"kind"`
	SubjectID    int64      `json:"subject_id"`
	ClaimID      int64      `json:"claim_id"`
	Tier         string     `json:"tier,omitempty"`
	DurationType string     `json:"duration_type,omitempty"`
	EndAt        *time.Time `json:"end_at,omitempty"`
	Attempts     int        `json:"attempts,omitempty"`
}

// Queue 基于 redis list 的通知队列，左进右出
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

func (q *Queue) Push(ctx context.Context, msg *NoticeMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push notice to %s: %w", q.key, err)
	}
	return nil
}

// Pop 阻塞等待最多 timeout，超时返回 nil, nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*NoticeMessage, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("pop notice from %s: %w", q.key, err)
	case len(res) != 2:
		return nil, nil
	}

	msg := new(NoticeMessage)
	if err := json.Unmarshal([]byte(res[1]), msg); err != nil {
		return nil, fmt.Errorf("decode notice: %w", err)
	}
	return msg, nil
}

// Length 当前积压数量
func (q *Queue) Length(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
