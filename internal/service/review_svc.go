package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
	"dropship_erp/pkg/cj"
)

// ReviewOptions 评价同步分页参数
type ReviewOptions struct {
	PageSize int
	MaxPages int
	Score    int // <= 0 不过滤
}

// ReviewSource 供应商评价接口
type ReviewSource interface {
	GetProductReviews(ctx context.Context, pid string, page, pageSize, score int) (*cj.Response, error)
}

// ReviewService 分页拉取供应商评价并写入
type ReviewService struct {
	repo   repository.ReviewRepository
	source ReviewSource
}

func NewReviewService(repo repository.ReviewRepository, source ReviewSource) *ReviewService {
	return &ReviewService{repo: repo, source: source}
}

// Sync 逐页拉取直到空页 / 不满页 / 达到 MaxPages，返回写入条数
func (s *ReviewService) Sync(ctx context.Context, product *model.Product, opts ReviewOptions) (int, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 5
	}

	total := 0
	for page := 1; page <= opts.MaxPages; page++ {
		resp, err := s.source.GetProductReviews(ctx, product.ExternalID, page, opts.PageSize, opts.Score)
		if err != nil {
			return total, fmt.Errorf("拉取评价第 %d 页失败: %w", page, err)
		}
		if err := cj.AsError(resp); err != nil {
			return total, fmt.Errorf("拉取评价第 %d 页失败: %w", page, err)
		}

		items := resp.DataList()
		reviews := make([]model.ProductReview, 0, len(items))
		for _, item := range items {
			if r, ok := mapReview(product.ID, item); ok {
				reviews = append(reviews, r)
			}
		}
		if err := s.repo.Upsert(ctx, reviews); err != nil {
			return total, fmt.Errorf("保存评价失败: %w", err)
		}
		total += len(reviews)

		if len(items) < opts.PageSize {
			break
		}
	}
	return total, nil
}

func mapReview(productID int64, item map[string]any) (model.ProductReview, bool) {
	id := firstString(item, "commentId", "id")
	if id == "" {
		return model.ProductReview{}, false
	}

	score, _ := strconv.Atoi(firstString(item, "score"))

	r := model.ProductReview{
		ProductID:        productID,
		ExternalReviewID: id,
		Score:            score,
		Author:           truncateRunes(firstString(item, "commentUser", "userName"), 128),
		Content:          CleanDescription(firstString(item, "comment", "content")),
		Country:          firstString(item, "countryCode"),
		Images:           datatypes.JSONSlice[string](urlList(item["commentUrls"])),
	}
	if t, ok := parseReviewTime(item["commentDate"]); ok {
		r.ReviewedAt = &t
	}
	return r, true
}

// parseReviewTime 兼容 "2006-01-02 15:04:05"、RFC3339 与毫秒时间戳
func parseReviewTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case float64:
		if val <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(val)).UTC(), true
	case string:
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
