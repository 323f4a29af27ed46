package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"dropship_erp/internal/controller"
	"dropship_erp/internal/middleware"
	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
	"dropship_erp/internal/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProducts struct{}

func (stubProducts) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	return &model.Product{ExternalID: "P1"}, nil
}

func (stubProducts) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	return nil, 0, nil
}

func (stubProducts) CountByStatus(ctx context.Context) (map[model.ProductStatus]int64, error) {
	return map[model.ProductStatus]int64{}, nil
}

type stubTrigger struct{}

func (stubTrigger) TriggerListingSync(ctx context.Context) (*task.ListingSyncStats, error) {
	return &task.ListingSyncStats{}, nil
}

func (stubTrigger) Status() map[string]bool { return map[string]bool{"listing": true} }

func setupTestRouter() *gin.Engine {
	ctls := &Controllers{
		Import:  controller.NewImportController(nil, zap.NewNop()),
		Product: controller.NewProductController(stubProducts{}),
		Sync:    controller.NewSyncController(stubTrigger{}),
		Health:  controller.NewHealthController(map[string]controller.Pinger{}),
	}
	return SetupRouter(ctls, middleware.NewSyncRateLimiter(), &middleware.JWTConfig{SecretKey: "router-secret"}, zap.NewNop())
}

func bearer(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("签发 Token 失败: %v", err)
	}
	return "Bearer " + token
}

func TestRoutes_Auth(t *testing.T) {
	r := setupTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"健康检查无需认证", http.MethodGet, "/api/health", "", http.StatusOK},
		{"商品查询无需认证", http.MethodGet, "/api/products/stats", "", http.StatusOK},
		{"按 pid 导入需认证", http.MethodPost, "/api/imports/cj/products/P1", "", http.StatusUnauthorized},
		{"载荷导入需认证", http.MethodPost, "/api/imports/cj/payload", "", http.StatusUnauthorized},
		{"批量导入需认证", http.MethodPost, "/api/imports/cj/bulk", "", http.StatusUnauthorized},
		{"同步触发需认证", http.MethodPost, "/api/sync/listing", "", http.StatusUnauthorized},
		{"错误密钥", http.MethodPost, "/api/sync/listing", bearer(t, "wrong"), http.StatusUnauthorized},
		{"同步触发", http.MethodPost, "/api/sync/listing", bearer(t, "router-secret"), http.StatusOK},
		{"同步状态", http.MethodGet, "/api/sync/status", bearer(t, "router-secret"), http.StatusOK},
		// 认证通过后进入参数校验
		{"批量导入参数错误", http.MethodPost, "/api/imports/cj/bulk", bearer(t, "router-secret"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s %s 期望 %d, 实际 %d, body=%s", tt.method, tt.path, tt.want, w.Code, w.Body.String())
			}
		})
	}
}
