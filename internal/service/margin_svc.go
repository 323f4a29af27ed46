package service

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
)

// MarginEvent 审计事件上下文
type MarginEvent struct {
	Event              string
	SellingPriceBefore decimal.Decimal
	StatusBefore       string
	Meta               map[string]any
}

// MarginService 记录售价 / 成本变更的审计日志
type MarginService struct {
	repo  repository.MarginLogRepository
	guard *PricingGuard
}

func NewMarginService(repo repository.MarginLogRepository, guard *PricingGuard) *MarginService {
	return &MarginService{repo: repo, guard: guard}
}

func (s *MarginService) LogProduct(ctx context.Context, p *model.Product, ev MarginEvent) error {
	return s.repo.Create(ctx, &model.MarginLog{
		ProductID:          p.ID,
		Event:              ev.Event,
		Source:             p.Source,
		CostPrice:          p.CostPrice,
		SellingPriceBefore: ev.SellingPriceBefore,
		SellingPriceAfter:  p.SellingPrice,
		MinSellingPrice:    s.guard.MinSellingPrice(p.CostPrice),
		StatusBefore:       ev.StatusBefore,
		StatusAfter:        string(p.Status),
		Meta:               datatypes.JSONMap(ev.Meta),
	})
}

func (s *MarginService) LogVariant(ctx context.Context, v *model.ProductVariant, ev MarginEvent) error {
	variantID := v.ID
	return s.repo.Create(ctx, &model.MarginLog{
		ProductID:          v.ProductID,
		VariantID:          &variantID,
		Event:              ev.Event,
		Source:             model.SourceCJ,
		CostPrice:          v.CostPrice,
		SellingPriceBefore: ev.SellingPriceBefore,
		SellingPriceAfter:  v.Price,
		MinSellingPrice:    s.guard.MinSellingPrice(v.CostPrice),
		StatusBefore:       ev.StatusBefore,
		Meta:               datatypes.JSONMap(ev.Meta),
	})
}
