package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dropship_erp/internal/model"
	"dropship_erp/internal/service"
	"dropship_erp/internal/task"
	"dropship_erp/pkg/cj"
)

// ==================== Mock 实现 ====================

type mockImporter struct {
	lookup   cj.ProductLookup
	payload  map[string]any
	payloads []map[string]any
	opts     service.ImportOptions

	product *model.Product
	result  *service.BulkImportResult
	err     error
}

func (m *mockImporter) ImportByLookup(ctx context.Context, lookup cj.ProductLookup, opts service.ImportOptions) (*model.Product, error) {
	m.lookup, m.opts = lookup, opts
	return m.product, m.err
}

func (m *mockImporter) ImportFromPayload(ctx context.Context, raw map[string]any, opts service.ImportOptions) (*model.Product, error) {
	m.payload, m.opts = raw, opts
	return m.product, m.err
}

func (m *mockImporter) BulkImport(ctx context.Context, payloads []map[string]any, opts service.ImportOptions) (*service.BulkImportResult, error) {
	m.payloads, m.opts = payloads, opts
	return m.result, m.err
}

type mockTrigger struct {
	stats *task.ListingSyncStats
	err   error
}

func (m *mockTrigger) TriggerListingSync(ctx context.Context) (*task.ListingSyncStats, error) {
	return m.stats, m.err
}

func (m *mockTrigger) Status() map[string]bool {
	return map[string]bool{"listing": m.err != task.ErrTaskDisabled}
}

func setupImportRouter(importer Importer) *gin.Engine {
	ctl := NewImportController(importer, zap.NewNop())

	r := gin.New()
	imports := r.Group("/api/imports/cj")
	{
		imports.POST("/products/:pid", ctl.ImportByPid)
		imports.POST("/payload", ctl.ImportPayload)
		imports.POST("/bulk", ctl.BulkImport)
	}
	return r
}

func postJSON(path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ==================== ImportController ====================

func TestImportController_ImportByPid(t *testing.T) {
	importer := &mockImporter{product: &model.Product{ExternalID: "P100", Name: "Cool Gadget"}}
	r := setupImportRouter(importer)

	w, body := doRequest(t, r, postJSON("/api/imports/cj/products/P100", map[string]any{
		"variant_sku": "P100-RED",
		"options": map[string]any{
			"sync_variants":    false,
			"review_page_size": 50,
			"locales":          []string{"de"},
		},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, body.Code)

	assert.Equal(t, cj.ProductLookup{PID: "P100", VariantSKU: "P100-RED"}, importer.lookup)
	assert.False(t, importer.opts.SyncVariants)
	assert.True(t, importer.opts.SyncImages, "未传的选项保持默认")
	assert.Equal(t, 50, importer.opts.ReviewPageSize)
	assert.Equal(t, []string{"de"}, importer.opts.Locales)

	var data struct {
		Imported bool `json:"imported"`
		Product  struct {
			ExternalID string `json:"external_id"`
		} `json:"product"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.True(t, data.Imported)
	assert.Equal(t, "P100", data.Product.ExternalID)
}

func TestImportController_ImportByPid_NoBody(t *testing.T) {
	importer := &mockImporter{}
	r := setupImportRouter(importer)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/cj/products/P404", nil)
	w, body := doRequest(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)

	// 下架返回 nil 商品
	var data map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, false, data["imported"])
	assert.NotContains(t, data, "product")
	assert.Equal(t, service.DefaultImportOptions(), importer.opts)
}

func TestImportController_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"供应商业务错误", &cj.APIError{Code: 1600001, Message: "invalid token"}, http.StatusBadGateway},
		{"超时", fmt.Errorf("fetch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"数据库错误", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupImportRouter(&mockImporter{err: tt.err})
			w, body := doRequest(t, r, httptest.NewRequest(http.MethodPost, "/api/imports/cj/products/P1", nil))
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want, body.Code)
		})
	}
}

func TestImportController_ImportPayload(t *testing.T) {
	importer := &mockImporter{product: &model.Product{ExternalID: "P7"}}
	r := setupImportRouter(importer)

	w, _ := doRequest(t, r, postJSON("/api/imports/cj/payload", map[string]any{
		"payload": map[string]any{"pid": "P7", "productNameEn": "Seven"},
		"options": map[string]any{"ship_to_country": "US"},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "P7", importer.payload["pid"])
	assert.Equal(t, "US", importer.opts.ShipToCountry)

	// 缺少 payload
	w, body := doRequest(t, r, postJSON("/api/imports/cj/payload", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 400, body.Code)

	// ship_to_country 需为两位国家码
	w, _ = doRequest(t, r, postJSON("/api/imports/cj/payload", map[string]any{
		"payload": map[string]any{"pid": "P7"},
		"options": map[string]any{"ship_to_country": "USA"},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportController_BulkImport(t *testing.T) {
	importer := &mockImporter{result: &service.BulkImportResult{Processed: 2, Created: 1, Updated: 1, ProductIDs: []int64{1, 2}}}
	r := setupImportRouter(importer)

	w, body := doRequest(t, r, postJSON("/api/imports/cj/bulk", map[string]any{
		"payloads": []map[string]any{{"pid": "P1"}, {"pid": "P2"}},
		"options":  map[string]any{"media_chunk_size": 10, "sync_reviews": true},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, importer.payloads, 2)
	assert.Equal(t, 10, importer.opts.MediaChunkSize)
	assert.True(t, importer.opts.SyncReviews)

	var result service.BulkImportResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []int64{1, 2}, result.ProductIDs)

	// 空列表
	w, _ = doRequest(t, r, postJSON("/api/imports/cj/bulk", map[string]any{"payloads": []any{}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非法分块大小
	w, _ = doRequest(t, r, postJSON("/api/imports/cj/bulk", map[string]any{
		"payloads": []map[string]any{{"pid": "P1"}},
		"options":  map[string]any{"dispatch_chunk_size": 0},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== SyncController ====================

func TestSyncController_SyncListing(t *testing.T) {
	tests := []struct {
		name    string
		trigger *mockTrigger
		want    int
	}{
		{"成功", &mockTrigger{stats: &task.ListingSyncStats{Pages: 2, Processed: 80}}, http.StatusOK},
		{"未启用", &mockTrigger{err: task.ErrTaskDisabled}, http.StatusBadRequest},
		{"执行中", &mockTrigger{err: task.ErrTaskRunning}, http.StatusConflict},
		{"其他错误", &mockTrigger{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := NewSyncController(tt.trigger)
			r := gin.New()
			r.POST("/api/sync/listing", ctl.SyncListing)
			r.GET("/api/sync/status", ctl.GetStatus)

			w, _ := doRequest(t, r, httptest.NewRequest(http.MethodPost, "/api/sync/listing", nil))
			assert.Equal(t, tt.want, w.Code)

			w, _ = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

// ==================== HealthController ====================

func TestHealthController(t *testing.T) {
	healthy := NewHealthController(map[string]Pinger{
		"database": func(ctx context.Context) error { return nil },
	})
	r := gin.New()
	r.GET("/api/health", healthy.Health)

	w, body := doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"database":"ok"}`, string(body.Data))

	broken := NewHealthController(map[string]Pinger{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	r = gin.New()
	r.GET("/api/health", broken.Health)

	w, body = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"database":"ok","redis":"connection refused"}`, string(body.Data))
}
