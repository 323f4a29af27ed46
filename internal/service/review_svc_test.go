package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship_erp/pkg/cj"
)

func reviewPage(t *testing.T, start, n int) *cj.Response {
	items := make([]any, 0, n)
	for i := start; i < start+n; i++ {
		items = append(items, map[string]any{
			"commentId":   fmt.Sprintf("R%d", i),
			"score":       "5",
			"commentUser": "buyer",
			"comment":     "<p>great</p>",
			"countryCode": "US",
			"commentUrls": []any{"https://img.test/r.jpg"},
			"commentDate": "2024-05-01 10:00:00",
		})
	}
	return okResponse(t, map[string]any{"list": items})
}

func TestReviewSync_StopsOnShortPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := createTestProduct(t, env, "PR1")

	env.supplier.getReviewsFn = func(pid string, page, pageSize, score int) (*cj.Response, error) {
		if page == 1 {
			return reviewPage(t, 0, pageSize), nil
		}
		return reviewPage(t, 100, 1), nil
	}

	n, err := env.reviewSvc.Sync(ctx, product, ReviewOptions{PageSize: 2, MaxPages: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2}, env.supplier.reviewPages)

	reviews, total, err := env.reviewRepo.ListByProduct(ctx, product.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, 5, reviews[0].Score)
	assert.Equal(t, "great", reviews[0].Content)
	require.NotNil(t, reviews[0].ReviewedAt)

	// 重复同步按评价 ID 更新
	env.supplier.reviewPages = nil
	_, err = env.reviewSvc.Sync(ctx, product, ReviewOptions{PageSize: 2, MaxPages: 5})
	require.NoError(t, err)
	_, total, _ = env.reviewRepo.ListByProduct(ctx, product.ID, 1, 10)
	assert.Equal(t, int64(3), total)
}

func TestReviewSync_MaxPagesAndErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := createTestProduct(t, env, "PR2")

	page := 0
	env.supplier.getReviewsFn = func(pid string, p, pageSize, score int) (*cj.Response, error) {
		page++
		return reviewPage(t, page*10, pageSize), nil
	}
	n, err := env.reviewSvc.Sync(ctx, product, ReviewOptions{PageSize: 3, MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	env.supplier.getReviewsFn = func(pid string, p, pageSize, score int) (*cj.Response, error) {
		return nil, errors.New("network")
	}
	_, err = env.reviewSvc.Sync(ctx, product, ReviewOptions{})
	assert.Error(t, err)

	env.supplier.getReviewsFn = func(pid string, p, pageSize, score int) (*cj.Response, error) {
		return &cj.Response{Code: 1600001, Message: "Invalid token"}, nil
	}
	_, err = env.reviewSvc.Sync(ctx, product, ReviewOptions{})
	assert.Error(t, err)
}

func TestMapReview(t *testing.T) {
	_, ok := mapReview(1, map[string]any{"comment": "no id"})
	assert.False(t, ok)

	r, ok := mapReview(1, map[string]any{"id": float64(77), "score": float64(4), "commentDate": float64(1714557600000)})
	require.True(t, ok)
	assert.Equal(t, "77", r.ExternalReviewID)
	assert.Equal(t, 4, r.Score)
	require.NotNil(t, r.ReviewedAt)
	assert.Equal(t, 2024, r.ReviewedAt.Year())
}
