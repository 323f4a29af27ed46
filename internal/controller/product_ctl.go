package controller

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dropship_erp/internal/api/dto"
	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
)

// ProductReader 商品查询
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
	CountByStatus(ctx context.Context) (map[model.ProductStatus]int64, error)
}

type ProductController struct {
	products ProductReader
}

func NewProductController(products ProductReader) *ProductController {
	return &ProductController{products: products}
}

// ==================== 查询接口 ====================

// GetProducts 商品列表
// GET /api/products?external_id=&status=&keyword=&page=&page_size=
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	filter := repository.ProductFilter{
		ExternalID: c.Query("external_id"),
		Status:     model.ProductStatus(c.Query("status")),
		Keyword:    c.Query("keyword"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("sync_enabled"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(400, gin.H{"code": 400, "message": "无效的 sync_enabled"})
			return
		}
		filter.SyncEnabled = &enabled
	}

	products, total, err := ctrl.products.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	respList := make([]dto.ProductResp, 0, len(products))
	for i := range products {
		respList = append(respList, dto.NewProductResp(&products[i]))
	}

	c.JSON(200, dto.ProductListResp{
		Code:     0,
		Message:  "success",
		Data:     respList,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetProduct 商品详情，含变体与媒体
// GET /api/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"code": 400, "message": "无效的商品ID"})
		return
	}

	product, err := ctrl.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(404, gin.H{"code": 404, "message": "商品不存在"})
			return
		}
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewProductResp(product),
	})
}

// GetProductStats 按状态统计
// GET /api/products/stats
func (ctrl *ProductController) GetProductStats(c *gin.Context) {
	counts, err := ctrl.products.CountByStatus(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	stats := dto.ProductStatsResp{ByStatus: make(map[string]int64, len(counts))}
	for status, n := range counts {
		stats.ByStatus[string(status)] = n
		stats.Total += n
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    stats,
	})
}
