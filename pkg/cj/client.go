package cj

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ==================== 配置 ====================

type Config struct {
	BaseURL     string // 默认 https://developers.cjdropshipping.com/api2.0/v1
	AccessToken string // 直接配置的 token，优先使用
	APIKey      string // 未配置 token 时用于换取 token
	Timeout     time.Duration
	RatePerSec  float64 // CJ 免费账号 1 QPS
	Debug       bool
}

// ProductLookup getProductBy 的查询条件，三选一
type ProductLookup struct {
	PID        string
	ProductSKU string
	VariantSKU string
}

// ==================== 客户端 ====================

type Client struct {
	cfg     *Config
	http    *resty.Client
	limiter *rate.Limiter

	tokenMu sync.Mutex
	token   string
}

func NewClient(cfg *Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://developers.cjdropshipping.com/api2.0/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "Dropship-ERP/1.0")

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		token:   cfg.AccessToken,
	}
}

// ==================== 商品接口 ====================

// GetProduct 商品详情
func (c *Client) GetProduct(ctx context.Context, pid string) (*Response, error) {
	return c.get(ctx, "/product/query", map[string]string{"pid": pid})
}

// GetVariantsByPid 商品变体列表
func (c *Client) GetVariantsByPid(ctx context.Context, pid string) (*Response, error) {
	return c.get(ctx, "/product/variant/query", map[string]string{"pid": pid})
}

// GetProductBy 按 pid / productSku / variantSku 查询商品详情
func (c *Client) GetProductBy(ctx context.Context, lookup ProductLookup) (*Response, error) {
	params := map[string]string{}
	switch {
	case lookup.PID != "":
		params["pid"] = lookup.PID
	case lookup.ProductSKU != "":
		params["productSku"] = lookup.ProductSKU
	case lookup.VariantSKU != "":
		params["variantSku"] = lookup.VariantSKU
	default:
		return nil, fmt.Errorf("查询条件为空")
	}
	return c.get(ctx, "/product/query", params)
}

// ListMyProducts "我的商品" 分页列表
func (c *Client) ListMyProducts(ctx context.Context, page, pageSize int) (*Response, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return c.get(ctx, "/product/myProduct/query", map[string]string{
		"pageNumber": strconv.Itoa(page),
		"pageSize":   strconv.Itoa(pageSize),
	})
}

// GetProductReviews 商品评价分页，score <= 0 表示不过滤
func (c *Client) GetProductReviews(ctx context.Context, pid string, page, pageSize, score int) (*Response, error) {
	params := map[string]string{
		"pid":      pid,
		"pageNum":  strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
	}
	if score > 0 {
		params["score"] = strconv.Itoa(score)
	}
	return c.get(ctx, "/product/productComments", params)
}

// ==================== 内部方法 ====================

func (c *Client) get(ctx context.Context, path string, params map[string]string) (*Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var res Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("CJ-Access-Token", token).
		SetQueryParams(params).
		SetResult(&res).
		SetError(&res).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("请求 CJ %s 失败: %w", path, err)
	}

	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("CJ %s HTTP错误 [%d]: %s", path, resp.StatusCode(), resp.String())
	}
	if res.RequestID == "" {
		res.RequestID = resp.Header().Get("X-Request-Id")
	}
	return &res, nil
}

// accessToken 返回可用 token，未配置时用 APIKey 换取并缓存
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("CJ access token 与 api key 均未配置")
	}

	var res Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"apiKey": c.cfg.APIKey}).
		SetResult(&res).
		Post("/authentication/getAccessToken")
	if err != nil {
		return "", fmt.Errorf("获取 CJ access token 失败: %w", err)
	}
	if err := AsError(&res); err != nil {
		return "", fmt.Errorf("获取 CJ access token 失败 [HTTP %d]: %w", resp.StatusCode(), err)
	}

	token, _ := res.DataMap()["accessToken"].(string)
	if token == "" {
		return "", fmt.Errorf("CJ access token 响应缺少 accessToken")
	}
	c.token = token
	return token, nil
}
