package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Delivery 从 stream 读出的一条消息
type Delivery struct {
	ID   string
	Lane Lane
	Job  *Job
}

// RedisQueue 基于 Redis Streams 的任务队列
type RedisQueue struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisQueue(rdb *redis.Client, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{rdb: rdb, logger: logger}
}

func (q *RedisQueue) Enqueue(ctx context.Context, lane Lane, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}

	msgID, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName(lane),
		Values: map[string]interface{}{"data": string(payload)},
	}).Result()
	if err != nil {
		return fmt.Errorf("投递任务到 %s 失败: %w", lane, err)
	}

	q.logger.Debug("任务已投递",
		zap.String("lane", string(lane)),
		zap.String("kind", string(job.Kind)),
		zap.String("job_id", job.ID),
		zap.String("message_id", msgID),
		zap.Int("products", len(job.ProductIDs)),
	)
	return nil
}

// EnsureGroup 创建消费组，已存在时忽略
func (q *RedisQueue) EnsureGroup(ctx context.Context, lane Lane, group string) error {
	err := q.rdb.XGroupCreateMkStream(ctx, StreamName(lane), group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Consume 以消费组方式读取新消息，无消息时返回空
func (q *RedisQueue) Consume(ctx context.Context, lane Lane, group, consumer string, count int64, block time.Duration) ([]Delivery, error) {
	results, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{StreamName(lane), ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var deliveries []Delivery
	for _, result := range results {
		for _, msg := range result.Messages {
			data, ok := msg.Values["data"].(string)
			if !ok {
				q.logger.Warn("消息缺少 data 字段", zap.String("message_id", msg.ID))
				_ = q.Ack(ctx, lane, group, msg.ID)
				continue
			}

			var job Job
			if err := json.Unmarshal([]byte(data), &job); err != nil {
				q.logger.Warn("消息解析失败", zap.String("message_id", msg.ID), zap.Error(err))
				_ = q.Ack(ctx, lane, group, msg.ID)
				continue
			}

			deliveries = append(deliveries, Delivery{ID: msg.ID, Lane: lane, Job: &job})
		}
	}
	return deliveries, nil
}

func (q *RedisQueue) Ack(ctx context.Context, lane Lane, group string, ids ...string) error {
	return q.rdb.XAck(ctx, StreamName(lane), group, ids...).Err()
}

// Len 通道内消息总数 (含已确认)
func (q *RedisQueue) Len(ctx context.Context, lane Lane) (int64, error) {
	return q.rdb.XLen(ctx, StreamName(lane)).Result()
}

// Pending 已读取未确认的消息数
func (q *RedisQueue) Pending(ctx context.Context, lane Lane, group string) (int64, error) {
	res, err := q.rdb.XPending(ctx, StreamName(lane), group).Result()
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}
