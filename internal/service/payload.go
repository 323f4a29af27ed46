package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ==================== 载荷形态 ====================

// PayloadShape 供应商载荷来源形态
type PayloadShape int

const (
	// ShapeDetail 商品详情接口 (product/query)
	ShapeDetail PayloadShape = iota
	// ShapeListing "我的商品" 列表项，字段名与详情不同
	ShapeListing
)

func (s PayloadShape) String() string {
	if s == ShapeListing {
		return "listing"
	}
	return "detail"
}

// 列表项字段 -> 详情字段
var listingAliases = [][2]string{
	{"productId", "pid"},
	{"nameEn", "productNameEn"},
	{"sku", "productSku"},
	{"bigImage", "productImage"},
}

// 从深到浅
var categoryKeys = []string{"categoryId", "threeCategoryId", "twoCategoryId", "oneCategoryId"}

// ==================== 规范化载荷 ====================

// Payload 规范化后的供应商商品
type Payload struct {
	Shape PayloadShape
	// Raw 原始载荷加上回填的详情字段，不丢弃任何键
	Raw map[string]any

	ExternalID   string
	Name         string
	Description  string
	SellPrice    *decimal.Decimal
	Currency     string
	CategoryIDs  []string
	CategoryName string

	Images []string
	Videos []string

	Variants   []map[string]any
	Attributes map[string]any

	// WarehouseCountries 大写国家码，空表示无仓库数据
	WarehouseCountries []string
}

// Normalize 将详情 / 列表载荷映射为统一结构，纯函数，不修改入参
func Normalize(raw map[string]any) Payload {
	data := make(map[string]any, len(raw)+len(listingAliases))
	for k, v := range raw {
		data[k] = v
	}

	shape := detectShape(data)
	if shape == ShapeListing {
		for _, alias := range listingAliases {
			from, to := alias[0], alias[1]
			if isBlank(data[to]) && !isBlank(data[from]) {
				data[to] = data[from]
			}
		}
	}

	p := Payload{
		Shape:        shape,
		Raw:          data,
		ExternalID:   stringValue(data["pid"]),
		Name:         firstString(data, "productNameEn", "nameEn", "productName"),
		Description:  firstString(data, "description", "productDescription"),
		Currency:     strings.ToUpper(firstString(data, "currency", "currencyCode")),
		CategoryName: firstString(data, "categoryNameEn", "categoryName", "threeCategoryName"),
		Variants:     mapList(data["variants"]),
		Attributes:   mapValue(data["attributes"]),
	}

	if price, ok := ParsePrice(data["sellPrice"]); ok {
		p.SellPrice = &price
	}

	for _, key := range categoryKeys {
		if id := stringValue(data[key]); id != "" {
			p.CategoryIDs = appendUnique(p.CategoryIDs, id)
		}
	}

	for _, key := range []string{"productImage", "productImageSet"} {
		for _, u := range urlList(data[key]) {
			p.Images = appendUnique(p.Images, u)
		}
	}
	for _, key := range []string{"productVideo", "videoList"} {
		for _, u := range urlList(data[key]) {
			p.Videos = appendUnique(p.Videos, u)
		}
	}

	p.WarehouseCountries = warehouseCountries(data, p.Variants)
	return p
}

func detectShape(data map[string]any) PayloadShape {
	if !isBlank(data["pid"]) {
		return ShapeDetail
	}
	for _, key := range []string{"productId", "nameEn", "bigImage"} {
		if _, ok := data[key]; ok {
			return ShapeListing
		}
	}
	return ShapeDetail
}

// IsEmpty 无外部 ID 的载荷不导入
func (p Payload) IsEmpty() bool {
	return p.ExternalID == ""
}

// HasVariants 载荷是否自带变体
func (p Payload) HasVariants() bool {
	return len(p.Variants) > 0
}

// ResolvePrice 优先取第一个变体的售价，其次取顶层售价
func (p Payload) ResolvePrice() (decimal.Decimal, bool) {
	if len(p.Variants) > 0 {
		if price, ok := ParsePrice(p.Variants[0]["variantSellPrice"]); ok {
			return price, true
		}
	}
	if p.SellPrice != nil {
		return *p.SellPrice, true
	}
	return decimal.Zero, false
}

// ShipsTo 仓库国家是否包含目标国家；无仓库数据或未指定国家时放行
func (p Payload) ShipsTo(country string) bool {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" || len(p.WarehouseCountries) == 0 {
		return true
	}
	for _, c := range p.WarehouseCountries {
		if c == country {
			return true
		}
	}
	return false
}

func warehouseCountries(data map[string]any, variants []map[string]any) []string {
	var out []string
	add := func(v any) {
		if code := strings.ToUpper(stringValue(v)); code != "" {
			out = appendUnique(out, code)
		}
	}

	switch v := data["warehouseCountries"].(type) {
	case []any:
		for _, c := range v {
			add(c)
		}
	case string:
		for _, c := range strings.Split(v, ",") {
			add(strings.TrimSpace(c))
		}
	}

	for _, inv := range mapList(data["inventories"]) {
		add(inv["countryCode"])
	}
	for _, variant := range variants {
		for _, inv := range mapList(variant["inventories"]) {
			add(inv["countryCode"])
		}
	}
	return out
}

// ==================== 取值工具 ====================

// ParsePrice 解析数字 / 数字字符串 / "a-b" 区间 (取下限)
func ParsePrice(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case decimal.Decimal:
		return val, true
	case string:
		return parsePriceString(val)
	}
	return decimal.Zero, false
}

func parsePriceString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return decimal.Zero, false
	}
	// 首字符的 "-" 是负号，其后的 "-" 是区间分隔
	if idx := strings.Index(s[1:], "-"); idx >= 0 {
		s = strings.TrimSpace(s[:idx+1])
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == math.Trunc(val) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%v", val)
	case json.Number:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringValue(data[k]); s != "" {
			return s
		}
	}
	return ""
}

func isBlank(v any) bool {
	return stringValue(v) == ""
}

func mapValue(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func mapList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]map[string]any); ok {
			return typed
		}
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// urlList 兼容列表 / JSON 编码的列表 / 单个 URL / 逗号分隔 / {"url": ...} 对象
func urlList(v any) []string {
	var out []string
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if strings.HasPrefix(s, "[") {
			var items []any
			if err := json.Unmarshal([]byte(s), &items); err == nil {
				return urlList(items)
			}
		}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); isURL(part) {
				out = append(out, part)
			}
		}
	case []string:
		for _, s := range val {
			out = append(out, urlList(s)...)
		}
	case []any:
		for _, item := range val {
			switch it := item.(type) {
			case string:
				out = append(out, urlList(it)...)
			case map[string]any:
				if u := firstString(it, "url", "videoUrl", "imageUrl"); isURL(u) {
					out = append(out, u)
				}
			}
		}
	}
	return out
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
