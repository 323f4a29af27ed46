package service

import (
	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	ninetyNine = decimal.RequireFromString("0.99")
)

// MarginPolicy 最低毛利策略
type MarginPolicy struct {
	MinMargin        decimal.Decimal // 最低绝对毛利
	MinMarkupPercent decimal.Decimal // 最低加价百分比，30 表示 30%
}

// PricingGuard 根据成本计算最低售价
type PricingGuard struct {
	policy MarginPolicy
}

// NewPricingGuard 负数配置按 0 处理
func NewPricingGuard(policy MarginPolicy) *PricingGuard {
	if policy.MinMargin.IsNegative() {
		policy.MinMargin = decimal.Zero
	}
	if policy.MinMarkupPercent.IsNegative() {
		policy.MinMarkupPercent = decimal.Zero
	}
	return &PricingGuard{policy: policy}
}

// MinSellingPrice max(cost*(1+markup%), cost+minMargin)，向上取整到分
// 负成本按 0 处理；结果非负且随成本单调不减
func (g *PricingGuard) MinSellingPrice(cost decimal.Decimal) decimal.Decimal {
	if cost.IsNegative() {
		cost = decimal.Zero
	}

	byMarkup := cost.Mul(decimal.NewFromInt(1).Add(g.policy.MinMarkupPercent.Div(hundred)))
	byMargin := cost.Add(g.policy.MinMargin)

	return decimal.Max(byMarkup, byMargin).RoundCeil(2)
}

// Enforce 将售价抬到不低于最低售价
func (g *PricingGuard) Enforce(price, cost decimal.Decimal) decimal.Decimal {
	return decimal.Max(price, g.MinSellingPrice(cost))
}

// Policy 当前策略
func (g *PricingGuard) Policy() MarginPolicy {
	return g.policy
}

// CompareAtPrice 划线价 = price*ratio 取整后加 .99，不低于 price
func CompareAtPrice(price, ratio decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	if ratio.LessThanOrEqual(decimal.NewFromInt(1)) {
		return price
	}
	v := price.Mul(ratio).Floor().Add(ninetyNine)
	return decimal.Max(v, price).Round(2)
}
