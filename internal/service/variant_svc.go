package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
)

// DefaultVariantName 供应商无变体时生成的默认变体名
const DefaultVariantName = "Default"

// VariantMarginLogger 变体审计
type VariantMarginLogger interface {
	LogVariant(ctx context.Context, v *model.ProductVariant, ev MarginEvent) error
}

// VariantService 变体同步与划线价生成
type VariantService struct {
	repo           repository.ProductRepository
	guard          *PricingGuard
	margins        VariantMarginLogger
	compareAtRatio decimal.Decimal
	logger         *zap.Logger
}

func NewVariantService(
	repo repository.ProductRepository,
	guard *PricingGuard,
	margins VariantMarginLogger,
	compareAtRatio decimal.Decimal,
	logger *zap.Logger,
) *VariantService {
	return &VariantService{
		repo:           repo,
		guard:          guard,
		margins:        margins,
		compareAtRatio: compareAtRatio,
		logger:         logger,
	}
}

// Sync 按 (product_id, vid, sku) upsert 变体；无变体时保证存在 Default 变体
// optionKeys 来自商品 productKeyEn，如 ["Color","Size"]
func (s *VariantService) Sync(ctx context.Context, product *model.Product, raw []map[string]any, optionKeys []string, locks Locks) Outcome {
	if locks.Variants {
		return skipped("variants locked")
	}

	candidates := make([]model.ProductVariant, 0, len(raw))
	for _, item := range raw {
		candidates = append(candidates, s.mapVariant(product, item, optionKeys))
	}
	if len(candidates) == 0 {
		candidates = append(candidates, s.defaultVariant(product))
	}

	changed := false
	for i := range candidates {
		c, err := s.upsert(ctx, &candidates[i], locks)
		if err != nil {
			return failed(fmt.Errorf("同步变体 %s 失败: %w", candidates[i].SKU, err))
		}
		changed = changed || c
	}

	if !changed {
		return dispatched("inline")
	}
	return dispatched("inline", model.ChangedVariants)
}

// upsert 返回该变体是否新建或有字段变化
func (s *VariantService) upsert(ctx context.Context, v *model.ProductVariant, locks Locks) (bool, error) {
	existing, err := s.repo.FindVariant(ctx, v.ProductID, v.ExternalVariantID, v.SKU)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	before := decimal.Zero
	event := MarginEvent{Event: model.MarginEventVariantSynced}

	if existing != nil {
		before = existing.Price
		if locks.Price {
			v.CostPrice = existing.CostPrice
			v.Price = existing.Price
			if minPrice := s.guard.MinSellingPrice(v.CostPrice); !v.Price.IsPositive() || v.Price.LessThan(minPrice) {
				v.Price = minPrice
			}
		}
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
		v.CompareAtPrice = existing.CompareAtPrice
		if variantEqual(existing, v) {
			return false, nil
		}
	}

	if err := s.repo.SaveVariant(ctx, v); err != nil {
		return false, err
	}

	event.SellingPriceBefore = before
	if err := s.margins.LogVariant(ctx, v, event); err != nil {
		s.logger.Warn("记录变体毛利日志失败", zap.Int64("variant_id", v.ID), zap.Error(err))
	}
	return true, nil
}

func (s *VariantService) mapVariant(product *model.Product, item map[string]any, optionKeys []string) model.ProductVariant {
	cost, _ := ParsePrice(item["variantSellPrice"])
	if cost.IsNegative() {
		cost = decimal.Zero
	}

	sku := firstString(item, "variantSku", "sku")
	vid := firstString(item, "vid", "variantId")
	name := CleanName(firstString(item, "variantNameEn", "variantName"))
	if name == "" {
		name = firstString(item, "variantKey")
	}
	if name == "" {
		name = sku
	}

	return model.ProductVariant{
		ProductID:         product.ID,
		ExternalVariantID: vid,
		SKU:               sku,
		Name:              truncateRunes(name, MaxNameLength),
		CostPrice:         cost.Round(2),
		Price:             s.guard.MinSellingPrice(cost),
		Currency:          currencyOr(firstString(item, "currency"), product.Currency),
		Options:           datatypes.JSONMap(parseOptions(optionKeys, firstString(item, "variantKey"))),
		Image:             firstOf(urlList(item["variantImage"])),
		Length:            floatValue(item["variantLength"]),
		Width:             floatValue(item["variantWidth"]),
		Height:            floatValue(item["variantHeight"]),
		Weight:            floatValue(item["variantWeight"]),
		Metadata:          datatypes.JSONMap(item),
	}
}

func (s *VariantService) defaultVariant(product *model.Product) model.ProductVariant {
	return model.ProductVariant{
		ProductID:         product.ID,
		ExternalVariantID: "",
		SKU:               product.ExternalID,
		Name:              DefaultVariantName,
		IsDefault:         true,
		CostPrice:         product.CostPrice,
		Price:             s.guard.Enforce(product.SellingPrice, product.CostPrice),
		Currency:          currencyOr(product.Currency, model.DefaultCurrency),
		Options:           datatypes.JSONMap{},
		Metadata:          datatypes.JSONMap{},
	}
}

// GenerateCompareAtPrices 为商品下所有变体生成划线价，返回更新条数
func (s *VariantService) GenerateCompareAtPrices(ctx context.Context, productID int64) (int, error) {
	variants, err := s.repo.ListVariants(ctx, productID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, v := range variants {
		compareAt := CompareAtPrice(v.Price, s.compareAtRatio)
		if compareAt.Equal(v.CompareAtPrice) {
			continue
		}
		if err := s.repo.UpdateVariantFields(ctx, v.ID, map[string]interface{}{"compare_at_price": compareAt}); err != nil {
			return updated, fmt.Errorf("更新变体 %d 划线价失败: %w", v.ID, err)
		}
		updated++
	}
	return updated, nil
}

// parseOptions 将 "Color-Size" 与 "Red-XL" 配对；数量不一致时整体作为单一选项
func parseOptions(keys []string, variantKey string) map[string]any {
	variantKey = strings.TrimSpace(variantKey)
	if variantKey == "" {
		return map[string]any{}
	}

	values := strings.Split(variantKey, "-")
	if len(keys) > 0 && len(keys) == len(values) {
		opts := make(map[string]any, len(keys))
		for i, k := range keys {
			opts[k] = strings.TrimSpace(values[i])
		}
		return opts
	}

	key := "Variant"
	if len(keys) == 1 {
		key = keys[0]
	}
	return map[string]any{key: variantKey}
}

// OptionKeys 解析商品的 productKeyEn，如 "Color-Size"
func OptionKeys(raw map[string]any) []string {
	var keys []string
	for _, k := range strings.Split(firstString(raw, "productKeyEn", "productKey"), "-") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func variantEqual(a, b *model.ProductVariant) bool {
	return a.Name == b.Name &&
		a.IsDefault == b.IsDefault &&
		a.Price.Equal(b.Price) &&
		a.CostPrice.Equal(b.CostPrice) &&
		a.Currency == b.Currency &&
		a.Image == b.Image &&
		a.Length == b.Length && a.Width == b.Width && a.Height == b.Height && a.Weight == b.Weight &&
		jsonEqual(a.Options, b.Options)
}

func floatValue(v any) float64 {
	d, ok := ParsePrice(v)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func currencyOr(c, fallback string) string {
	if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
		return c
	}
	return fallback
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
