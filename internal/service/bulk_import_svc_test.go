package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship_erp/internal/model"
	"dropship_erp/internal/queue"
)

// seedProduct 直接写入一条一小时前创建的商品
func seedProduct(t *testing.T, env *testEnv, externalID string, syncEnabled bool) *model.Product {
	t.Helper()
	created := time.Now().Add(-time.Hour)
	p := &model.Product{
		ExternalID:   externalID,
		Source:       model.SourceCJ,
		Name:         "Old " + externalID,
		Slug:         "old-" + externalID,
		CostPrice:    decimal.NewFromInt(5),
		SellingPrice: decimal.NewFromInt(9),
		Currency:     model.DefaultCurrency,
		Status:       model.ProductStatusActive,
		IsActive:     true,
		SyncEnabled:  syncEnabled,
	}
	p.CreatedAt = created
	p.UpdatedAt = created
	require.NoError(t, env.products.Create(context.Background(), p))
	return p
}

func TestBulkImport_CreatedAndUpdated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p1 := seedProduct(t, env, "P1", true)
	p2 := seedProduct(t, env, "P2", true)

	payloads := []map[string]any{
		{"pid": "P1", "productNameEn": "Bulk One", "sellPrice": 10},
		{"pid": "P2", "productNameEn": "Bulk Two", "sellPrice": "20.00"},
		{"pid": "P3", "productNameEn": "Bulk Three", "sellPrice": 30, "productImage": "https://img.test/p3.jpg"},
	}

	result, err := env.svc.BulkImport(ctx, payloads, DefaultImportOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Created+result.Updated)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Updated)
	assert.Zero(t, result.Skipped)
	require.Len(t, result.ProductIDs, 3)
	assert.Contains(t, result.ProductIDs, p1.ID)
	assert.Contains(t, result.ProductIDs, p2.ID)

	// 批量路径不拉取变体
	assert.Zero(t, env.supplier.variantCalls)

	updated, err := env.products.GetByExternalID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Bulk One", updated.Name)
	assert.Equal(t, "old-P1", updated.Slug, "冲突更新不覆盖 slug")
	assert.Equal(t, model.ProductStatusActive, updated.Status, "冲突更新不覆盖状态")
	assertDecimal(t, "13", updated.SellingPrice, "selling_price")

	created, err := env.products.GetByExternalID(ctx, "P3")
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusDraft, created.Status)
	assert.Equal(t, "bulk-three-p3", created.Slug)
	assertDecimal(t, "39", created.SellingPrice, "selling_price")
	assert.Contains(t, []string(created.ChangedFields), model.ChangedCreated)

	// 副作用按 ID 分批投递
	assert.Len(t, env.queue.byKind(queue.KindSyncMedia), 1)
	assert.Len(t, env.queue.byKind(queue.KindSyncVariants), 1)
	assert.Len(t, env.queue.byKind(queue.KindGenerateCompareAt), 1)
	assert.Len(t, env.queue.byKind(queue.KindGenerateSEO), 1)
	translate := env.queue.byKind(queue.KindTranslateProduct)
	require.Len(t, translate, 1)
	assert.Len(t, translate[0].ProductIDs, 3)
	assert.Empty(t, env.queue.byKind(queue.KindSyncReviews))
}

func TestBulkImport_SkipsAndChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedProduct(t, env, "P4", false)

	payloads := []map[string]any{
		{"productNameEn": "missing id"},
		{"pid": "P4", "productNameEn": "Sync disabled"},
		{"pid": "P5", "productNameEn": "Five", "sellPrice": 1},
		{"pid": "P6", "productNameEn": "Six", "sellPrice": 2},
		{"pid": "P7", "productNameEn": "Seven", "sellPrice": 3},
		{"pid": "P7", "productNameEn": "Seven Again", "sellPrice": 3},
	}

	opts := DefaultImportOptions()
	opts.MediaChunkSize = 2
	opts.SyncReviews = true
	opts.DispatchChunkSize = 1

	result, err := env.svc.BulkImport(ctx, payloads, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 3, result.Skipped)

	seven, err := env.products.GetByExternalID(ctx, "P7")
	require.NoError(t, err)
	assert.Equal(t, "Seven Again", seven.Name, "同批次重复 pid 以最后一条为准")

	disabled, err := env.products.GetByExternalID(ctx, "P4")
	require.NoError(t, err)
	assert.Equal(t, "Old P4", disabled.Name)

	assert.Len(t, env.queue.byKind(queue.KindSyncMedia), 2)
	assert.Len(t, env.queue.byKind(queue.KindSyncReviews), 3)
}

func TestBulkImport_RespectsLocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := seedProduct(t, env, "P8", true)
	require.NoError(t, env.products.UpdateFields(ctx, p.ID, map[string]interface{}{
		"lock_price":    true,
		"lock_images":   true,
		"lock_variants": true,
	}))

	result, err := env.svc.BulkImport(ctx, []map[string]any{
		{"pid": "P8", "productNameEn": "Locked", "sellPrice": 100},
	}, DefaultImportOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	stored, err := env.products.GetByExternalID(ctx, "P8")
	require.NoError(t, err)
	assertDecimal(t, "5", stored.CostPrice, "cost_price")
	assertDecimal(t, "9", stored.SellingPrice, "selling_price")

	assert.Empty(t, env.queue.byKind(queue.KindSyncMedia))
	assert.Empty(t, env.queue.byKind(queue.KindSyncVariants))
}

func TestBulkImport_Empty(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.BulkImport(context.Background(), nil, DefaultImportOptions())
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.NotNil(t, result.ProductIDs)
}
