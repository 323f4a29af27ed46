package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler 处理单个任务
type Handler func(ctx context.Context, job *Job) error

// WorkerConfig 消费者配置
type WorkerConfig struct {
	Group     string
	Consumer  string
	Lanes     []Lane
	BatchSize int64
	Block     time.Duration
}

// Worker 按通道并发消费，每个通道一个 goroutine
// 任务失败只记录日志并确认，不做重试；未注册的任务类型不确认，留给其它消费者
type Worker struct {
	queue  *RedisQueue
	cfg    WorkerConfig
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[Kind]Handler
}

func NewWorker(queue *RedisQueue, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &Worker{
		queue:    queue,
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[Kind]Handler),
	}
}

// Register 注册任务处理器，同一类型重复注册时覆盖
func (w *Worker) Register(kind Kind, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

func (w *Worker) servesLane(lane Lane) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for kind := range w.handlers {
		if LaneFor(kind) == lane {
			return true
		}
	}
	return false
}

func (w *Worker) handler(kind Kind) (Handler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[kind]
	return h, ok
}

// Run 阻塞直到 ctx 取消或某个通道出现不可恢复的错误
func (w *Worker) Run(ctx context.Context) error {
	if len(w.cfg.Lanes) == 0 {
		return fmt.Errorf("未配置消费通道")
	}
	for _, lane := range w.cfg.Lanes {
		if !w.servesLane(lane) {
			return fmt.Errorf("通道 %s 没有已注册的任务类型", lane)
		}
	}

	for _, lane := range w.cfg.Lanes {
		if err := w.queue.EnsureGroup(ctx, lane, w.cfg.Group); err != nil {
			return fmt.Errorf("创建消费组 %s 失败: %w", lane, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, lane := range w.cfg.Lanes {
		lane := lane
		g.Go(func() error {
			return w.consumeLane(gctx, lane)
		})
	}

	w.logger.Info("队列消费者已启动",
		zap.String("group", w.cfg.Group),
		zap.String("consumer", w.cfg.Consumer),
		zap.Int("lanes", len(w.cfg.Lanes)),
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consumeLane(ctx context.Context, lane Lane) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.Poll(ctx, lane); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("读取队列失败", zap.String("lane", string(lane)), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

// Poll 读取并处理一批消息，返回已处理条数
func (w *Worker) Poll(ctx context.Context, lane Lane) (int, error) {
	deliveries, err := w.queue.Consume(ctx, lane, w.cfg.Group, w.cfg.Consumer, w.cfg.BatchSize, w.cfg.Block)
	if err != nil {
		return 0, err
	}

	for _, d := range deliveries {
		if !w.handle(ctx, d) {
			continue
		}
		if err := w.queue.Ack(ctx, lane, w.cfg.Group, d.ID); err != nil {
			w.logger.Warn("确认消息失败", zap.String("message_id", d.ID), zap.Error(err))
		}
	}
	return len(deliveries), nil
}

// handle 返回消息是否应确认
func (w *Worker) handle(ctx context.Context, d Delivery) bool {
	log := w.logger.With(
		zap.String("lane", string(d.Lane)),
		zap.String("kind", string(d.Job.Kind)),
		zap.String("job_id", d.Job.ID),
	)

	h, ok := w.handler(d.Job.Kind)
	if !ok {
		log.Warn("未注册的任务类型，保留待处理")
		return false
	}

	start := time.Now()
	if err := h(ctx, d.Job); err != nil {
		log.Error("任务执行失败", zap.Int64s("product_ids", d.Job.ProductIDs), zap.Error(err))
		return true
	}
	log.Debug("任务完成", zap.Duration("cost", time.Since(start)))
	return true
}
