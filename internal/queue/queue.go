package queue

import (
	"context"
	"time"
)

// Lane 队列通道，每个通道对应一个 Redis Stream
type Lane string

const (
	LaneTranslation Lane = "translation"
	LaneSEO         Lane = "seo"
	LaneMedia       Lane = "media"
	LaneVariants    Lane = "variants"
	LaneReviews     Lane = "reviews"
)

// Kind 任务类型
type Kind string

const (
	KindTranslateProduct  Kind = "translate_product"
	KindGenerateSEO       Kind = "generate_seo"
	KindSyncMedia         Kind = "sync_media"
	KindMirrorMedia       Kind = "mirror_media"
	KindSyncVariants      Kind = "sync_variants"
	KindGenerateCompareAt Kind = "generate_compare_at"
	KindSyncReviews       Kind = "sync_reviews"
)

var kindLanes = map[Kind]Lane{
	KindTranslateProduct:  LaneTranslation,
	KindGenerateSEO:       LaneSEO,
	KindSyncMedia:         LaneMedia,
	KindMirrorMedia:       LaneMedia,
	KindSyncVariants:      LaneVariants,
	KindGenerateCompareAt: LaneVariants,
	KindSyncReviews:       LaneReviews,
}

// LaneFor 任务类型所属通道，未知类型返回空
func LaneFor(kind Kind) Lane {
	return kindLanes[kind]
}

// StreamName 通道对应的 stream key
func StreamName(lane Lane) string {
	return "queue:" + string(lane)
}

// Job 队列中的一条任务
type Job struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	ProductIDs []int64        `json:"product_ids"`
	Args       map[string]any `json:"args,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Attempts   int            `json:"attempts"`
}

// Queue 任务投递接口
type Queue interface {
	Enqueue(ctx context.Context, lane Lane, job *Job) error
}
