package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship_erp/internal/model"
)

func TestCategoryService_ResolveDeepestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCategoryService(env.categories)

	for _, c := range []*model.Category{
		{Name: "Home", Slug: "home", Source: model.SourceCJ, ExternalID: "C1"},
		{Name: "Lighting", Slug: "lighting", Source: model.SourceCJ, ExternalID: "C2"},
	} {
		require.NoError(t, env.categories.Create(ctx, c))
	}

	p := Normalize(map[string]any{"pid": "P1", "categoryId": "C3", "twoCategoryId": "C2", "oneCategoryId": "C1"})
	got, err := svc.Resolve(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "C2", got.ExternalID)

	none, err := svc.Resolve(ctx, Normalize(map[string]any{"pid": "P2", "categoryId": "C9"}))
	require.NoError(t, err)
	assert.Nil(t, none)

	// 解析不创建分类
	var count int64
	env.db.Model(&model.Category{}).Count(&count)
	assert.Equal(t, int64(2), count)

	many, err := svc.ResolveMany(ctx, []Payload{p, Normalize(map[string]any{"pid": "P3", "oneCategoryId": "C1"})})
	require.NoError(t, err)
	assert.Equal(t, "C2", many["P1"].ExternalID)
	assert.Equal(t, "C1", many["P3"].ExternalID)
}

func TestCategoryService_Placeholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCategoryService(env.categories)

	p := Normalize(map[string]any{"pid": "P1", "categoryId": "C7", "categoryName": "Desk Lamps"})
	first, err := svc.ResolveOrCreatePlaceholder(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.IsPlaceholder)
	assert.Equal(t, "desk-lamps-c7", first.Slug)

	second, err := svc.ResolveOrCreatePlaceholder(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	placeholders, err := env.categories.ListPlaceholders(ctx, model.SourceCJ)
	require.NoError(t, err)
	assert.Len(t, placeholders, 1)
}
