package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dropship_erp/internal/api/dto"
	"dropship_erp/internal/model"
	"dropship_erp/internal/service"
	"dropship_erp/pkg/cj"
)

// Importer 导入服务
type Importer interface {
	ImportByLookup(ctx context.Context, lookup cj.ProductLookup, opts service.ImportOptions) (*model.Product, error)
	ImportFromPayload(ctx context.Context, raw map[string]any, opts service.ImportOptions) (*model.Product, error)
	BulkImport(ctx context.Context, payloads []map[string]any, opts service.ImportOptions) (*service.BulkImportResult, error)
}

type ImportController struct {
	importer Importer
	logger   *zap.Logger
}

func NewImportController(importer Importer, logger *zap.Logger) *ImportController {
	return &ImportController{importer: importer, logger: logger}
}

// ==================== 单个导入 ====================

// ImportByPid 按 CJ pid 拉取并导入
// POST /api/imports/cj/products/:pid
// body 可选: product_sku / variant_sku 改用 SKU 查询，options 覆盖默认选项
func (ctrl *ImportController) ImportByPid(c *gin.Context) {
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		c.JSON(400, gin.H{"code": 400, "message": "缺少 pid"})
		return
	}

	var req dto.ImportByPidReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
			return
		}
	}

	lookup := cj.ProductLookup{PID: pid, ProductSKU: req.ProductSKU, VariantSKU: req.VariantSKU}
	product, err := ctrl.importer.ImportByLookup(c.Request.Context(), lookup, req.Options.ToOptions())
	if err != nil {
		ctrl.fail(c, "按 pid 导入失败", err, zap.String("pid", pid))
		return
	}

	ctrl.ok(c, product)
}

// ImportPayload 直接提交 CJ 详情 / 列表数据导入
// POST /api/imports/cj/payload
func (ctrl *ImportController) ImportPayload(c *gin.Context) {
	var req dto.ImportPayloadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	product, err := ctrl.importer.ImportFromPayload(c.Request.Context(), req.Payload, req.Options.ToOptions())
	if err != nil {
		ctrl.fail(c, "数据导入失败", err)
		return
	}

	ctrl.ok(c, product)
}

// ==================== 批量导入 ====================

// BulkImport 批量导入列表数据，变体与媒体走队列补齐
// POST /api/imports/cj/bulk
func (ctrl *ImportController) BulkImport(c *gin.Context) {
	var req dto.BulkImportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	result, err := ctrl.importer.BulkImport(c.Request.Context(), req.Payloads, req.Options.ToOptions())
	if err != nil {
		ctrl.fail(c, "批量导入失败", err, zap.Int("payloads", len(req.Payloads)))
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    result,
	})
}

// ==================== 响应辅助 ====================

// ok 商品为空表示下架 / 被过滤 / 未更新，仍返回 200
func (ctrl *ImportController) ok(c *gin.Context, product *model.Product) {
	resp := dto.ImportResp{Imported: product != nil}
	if product != nil {
		p := dto.NewProductResp(product)
		resp.Product = &p
	}
	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

func (ctrl *ImportController) fail(c *gin.Context, msg string, err error, fields ...zap.Field) {
	status := statusFor(err)
	ctrl.logger.Error("[ImportController] "+msg, append(fields, zap.Error(err))...)
	c.JSON(status, gin.H{"code": status, "message": msg + ": " + err.Error()})
}

// statusFor 供应商错误映射为网关类状态码
func statusFor(err error) int {
	var apiErr *cj.APIError
	switch {
	case cj.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
