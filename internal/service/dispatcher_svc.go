package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dropship_erp/internal/queue"
)

// DefaultDispatchChunkSize 批量投递时单个任务的最大商品数
const DefaultDispatchChunkSize = 100

// DispatcherService 将副作用任务投递到队列通道，不做重试
type DispatcherService struct {
	queue  queue.Queue
	logger *zap.Logger
}

// NewDispatcherService q 为 nil 时所有投递返回 skipped
func NewDispatcherService(q queue.Queue, logger *zap.Logger) *DispatcherService {
	return &DispatcherService{queue: q, logger: logger}
}

// Dispatch 投递单个商品的任务
func (s *DispatcherService) Dispatch(ctx context.Context, kind queue.Kind, productID int64, args map[string]any) Outcome {
	return s.enqueue(ctx, kind, []int64{productID}, args)
}

// DispatchBatch 按 chunkSize 切分后逐批投递，每批一个任务
func (s *DispatcherService) DispatchBatch(ctx context.Context, kind queue.Kind, productIDs []int64, chunkSize int, args map[string]any) []Outcome {
	if len(productIDs) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultDispatchChunkSize
	}

	outcomes := make([]Outcome, 0, (len(productIDs)+chunkSize-1)/chunkSize)
	for start := 0; start < len(productIDs); start += chunkSize {
		end := min(start+chunkSize, len(productIDs))
		chunk := make([]int64, end-start)
		copy(chunk, productIDs[start:end])
		outcomes = append(outcomes, s.enqueue(ctx, kind, chunk, args))
	}
	return outcomes
}

func (s *DispatcherService) enqueue(ctx context.Context, kind queue.Kind, productIDs []int64, args map[string]any) Outcome {
	if s.queue == nil {
		return skipped("queue not configured")
	}

	lane := queue.LaneFor(kind)
	if lane == "" {
		return failed(fmt.Errorf("unknown job kind %q", kind))
	}

	job := &queue.Job{Kind: kind, ProductIDs: productIDs, Args: args}
	if err := s.queue.Enqueue(ctx, lane, job); err != nil {
		s.logger.Warn("任务投递失败",
			zap.String("kind", string(kind)),
			zap.Int64s("product_ids", productIDs),
			zap.Error(err),
		)
		return failed(err)
	}
	return dispatched(string(lane))
}
