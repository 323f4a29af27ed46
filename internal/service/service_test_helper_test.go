package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dropship_erp/internal/model"
	"dropship_erp/internal/queue"
	"dropship_erp/internal/repository"
	"dropship_erp/pkg/cj"
)

// ==================== 数据库 ====================

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&model.Category{},
		&model.Product{}, &model.ProductVariant{}, &model.ProductImage{}, &model.ProductVideo{},
		&model.ProductReview{}, &model.MarginLog{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// ==================== Mock 实现 ====================

func okResponse(t *testing.T, data any) *cj.Response {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("序列化响应失败: %v", err)
	}
	return &cj.Response{Code: 200, Result: true, Message: "Success", Data: raw, RequestID: "req-test"}
}

func delistedResponse() *cj.Response {
	return &cj.Response{Code: 1600100, Result: false, Message: "Product has been removed from shelves", RequestID: "req-test"}
}

type mockSupplier struct {
	mu sync.Mutex

	getProductFn  func(pid string) (*cj.Response, error)
	getByFn       func(lookup cj.ProductLookup) (*cj.Response, error)
	getVariantsFn func(pid string) (*cj.Response, error)
	getReviewsFn  func(pid string, page, pageSize, score int) (*cj.Response, error)

	variantCalls int
	reviewPages  []int
}

func (m *mockSupplier) GetProduct(ctx context.Context, pid string) (*cj.Response, error) {
	if m.getProductFn != nil {
		return m.getProductFn(pid)
	}
	return &cj.Response{Code: 200, Result: true}, nil
}

func (m *mockSupplier) GetProductBy(ctx context.Context, lookup cj.ProductLookup) (*cj.Response, error) {
	if m.getByFn != nil {
		return m.getByFn(lookup)
	}
	return &cj.Response{Code: 200, Result: true}, nil
}

func (m *mockSupplier) GetVariantsByPid(ctx context.Context, pid string) (*cj.Response, error) {
	m.mu.Lock()
	m.variantCalls++
	m.mu.Unlock()
	if m.getVariantsFn != nil {
		return m.getVariantsFn(pid)
	}
	return &cj.Response{Code: 200, Result: true, Data: json.RawMessage(`[]`)}, nil
}

func (m *mockSupplier) GetProductReviews(ctx context.Context, pid string, page, pageSize, score int) (*cj.Response, error) {
	m.mu.Lock()
	m.reviewPages = append(m.reviewPages, page)
	m.mu.Unlock()
	if m.getReviewsFn != nil {
		return m.getReviewsFn(pid, page, pageSize, score)
	}
	return &cj.Response{Code: 200, Result: true, Data: json.RawMessage(`{"list":[]}`)}, nil
}

type enqueued struct {
	lane queue.Lane
	job  queue.Job
}

type mockQueue struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (q *mockQueue) Enqueue(ctx context.Context, lane queue.Lane, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, enqueued{lane: lane, job: *job})
	return nil
}

func (q *mockQueue) byKind(kind queue.Kind) []queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []queue.Job
	for _, e := range q.jobs {
		if e.job.Kind == kind {
			out = append(out, e.job)
		}
	}
	return out
}

func (q *mockQueue) reset() {
	q.mu.Lock()
	q.jobs = nil
	q.mu.Unlock()
}

type mockMediaStorage struct {
	uploads map[string]string
	failURL string
}

func (m *mockMediaStorage) UploadFromURL(ctx context.Context, sourceURL string, filename string) (string, error) {
	if sourceURL == m.failURL {
		return "", context.DeadlineExceeded
	}
	if m.uploads == nil {
		m.uploads = map[string]string{}
	}
	m.uploads[sourceURL] = filename
	return "https://cdn.test/" + filename, nil
}

// ==================== 组装 ====================

// testPolicy 最低毛利 2.00，最低加价 30%
var testPolicy = MarginPolicy{
	MinMargin:        decimal.RequireFromString("2.00"),
	MinMarkupPercent: decimal.NewFromInt(30),
}

type testEnv struct {
	db         *gorm.DB
	products   repository.ProductRepository
	categories repository.CategoryRepository
	reviewRepo repository.ReviewRepository
	marginRepo repository.MarginLogRepository
	guard      *PricingGuard
	supplier   *mockSupplier
	queue      *mockQueue

	variantSvc *VariantService
	mediaSvc   *MediaService
	reviewSvc  *ReviewService
	svc        *ImportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupServiceDB(t)
	log := zap.NewNop()

	env := &testEnv{
		db:         db,
		products:   repository.NewProductRepository(db),
		categories: repository.NewCategoryRepository(db),
		reviewRepo: repository.NewReviewRepository(db),
		marginRepo: repository.NewMarginLogRepository(db),
		guard:      NewPricingGuard(testPolicy),
		supplier:   &mockSupplier{},
		queue:      &mockQueue{},
	}

	margins := NewMarginService(env.marginRepo, env.guard)
	env.variantSvc = NewVariantService(env.products, env.guard, margins, decimal.RequireFromString("1.35"), log)
	env.mediaSvc = NewMediaService(env.products, nil, log)
	env.reviewSvc = NewReviewService(env.reviewRepo, env.supplier)

	env.svc = NewImportService(
		env.products,
		env.supplier,
		NewCategoryService(env.categories),
		env.guard,
		margins,
		env.variantSvc,
		env.mediaSvc,
		env.reviewSvc,
		NewDispatcherService(env.queue, log),
		TranslationSettings{Locales: []string{"en", "fr"}, SourceLocale: "en"},
		log,
	)
	return env
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	if !got.Equal(mustDecimal(want)) {
		t.Errorf("%s 期望 %s, 实际 %s", field, want, got.String())
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
