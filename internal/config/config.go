package config

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	CJ          CJConfig
	Pricing     PricingConfig
	Translation TranslationConfig
	Storage     StorageConfig
	Auth        AuthConfig
	Queue       QueueConfig
	Task        TaskConfig
}

type ServerConfig struct {
	Port  string
	Env   string
	Debug bool // APP_DEBUG
}

type DatabaseConfig struct {
	DSN         string
	LogSQL      bool
	AutoMigrate bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CJConfig struct {
	BaseURL     string
	AccessToken string
	APIKey      string
	Timeout     time.Duration
	RatePerSec  float64
}

type PricingConfig struct {
	MinMargin        decimal.Decimal // 最低绝对毛利
	MinMarkupPercent decimal.Decimal // 最低加价百分比
	CompareAtRatio   decimal.Decimal // 划线价倍率
}

type TranslationConfig struct {
	Locales      []string
	SourceLocale string
}

type StorageConfig struct {
	Provider  string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	CDNDomain string
	BasePath  string
}

// AuthConfig 管理接口 JWT 校验
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	JWTLeeway time.Duration
}

type QueueConfig struct {
	Group    string
	Consumer string
	Block    time.Duration
	Lanes    []string
}

type TaskConfig struct {
	ListingSyncEnabled bool
	ListingSyncSpec    string // 秒级 cron 表达式
	ListingPageSize    int
	ListingMaxPages    int
}

// Load 读取 .env 与环境变量，环境变量优先
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("警告: 未读取到配置文件: %v", err)
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("APP_DEBUG", false)

	v.SetDefault("DB_DSN", "host=localhost user=postgres password=postgres dbname=dropship port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("DB_LOG_SQL", false)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CJ_BASE_URL", "https://developers.cjdropshipping.com/api2.0/v1")
	v.SetDefault("CJ_TIMEOUT", "20s")
	v.SetDefault("CJ_RATE_PER_SEC", 1.0)

	v.SetDefault("PRICING_MIN_MARGIN", "2.00")
	v.SetDefault("PRICING_MIN_MARKUP_PERCENT", "30")
	v.SetDefault("PRICING_COMPARE_AT_RATIO", "1.35")

	v.SetDefault("TRANSLATION_LOCALES", "en,fr")
	v.SetDefault("TRANSLATION_SOURCE_LOCALE", "en")

	v.SetDefault("STORAGE_PROVIDER", "s3")
	v.SetDefault("STORAGE_BASE_PATH", "dropship")

	v.SetDefault("JWT_ISSUER", "dropship-erp")
	v.SetDefault("JWT_LEEWAY", "30s")

	v.SetDefault("QUEUE_GROUP", "dropship-workers")
	v.SetDefault("QUEUE_CONSUMER", "worker-1")
	v.SetDefault("QUEUE_BLOCK", "5s")
	v.SetDefault("QUEUE_LANES", "variants,media,reviews")

	v.SetDefault("LISTING_SYNC_ENABLED", false)
	v.SetDefault("LISTING_SYNC_SPEC", "0 */30 * * * *")
	v.SetDefault("LISTING_PAGE_SIZE", 50)
	v.SetDefault("LISTING_MAX_PAGES", 20)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:  v.GetString("SERVER_PORT"),
			Env:   v.GetString("SERVER_ENV"),
			Debug: v.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			DSN:         v.GetString("DB_DSN"),
			LogSQL:      v.GetBool("DB_LOG_SQL"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		CJ: CJConfig{
			BaseURL:     v.GetString("CJ_BASE_URL"),
			AccessToken: v.GetString("CJ_ACCESS_TOKEN"),
			APIKey:      v.GetString("CJ_API_KEY"),
			Timeout:     v.GetDuration("CJ_TIMEOUT"),
			RatePerSec:  v.GetFloat64("CJ_RATE_PER_SEC"),
		},
		Pricing: PricingConfig{
			MinMargin:        decimalOrZero(v.GetString("PRICING_MIN_MARGIN")),
			MinMarkupPercent: decimalOrZero(v.GetString("PRICING_MIN_MARKUP_PERCENT")),
			CompareAtRatio:   decimalOrZero(v.GetString("PRICING_COMPARE_AT_RATIO")),
		},
		Translation: TranslationConfig{
			Locales:      ParseList(v.Get("TRANSLATION_LOCALES"), []string{"en", "fr"}),
			SourceLocale: strings.TrimSpace(v.GetString("TRANSLATION_SOURCE_LOCALE")),
		},
		Storage: StorageConfig{
			Provider:  v.GetString("STORAGE_PROVIDER"),
			Bucket:    v.GetString("AWS_BUCKET"),
			Region:    v.GetString("AWS_REGION"),
			Endpoint:  v.GetString("AWS_ENDPOINT"),
			AccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			CDNDomain: v.GetString("AWS_CDN_DOMAIN"),
			BasePath:  v.GetString("STORAGE_BASE_PATH"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			JWTIssuer: v.GetString("JWT_ISSUER"),
			JWTLeeway: v.GetDuration("JWT_LEEWAY"),
		},
		Queue: QueueConfig{
			Group:    v.GetString("QUEUE_GROUP"),
			Consumer: v.GetString("QUEUE_CONSUMER"),
			Block:    v.GetDuration("QUEUE_BLOCK"),
			Lanes:    ParseList(v.Get("QUEUE_LANES"), nil),
		},
		Task: TaskConfig{
			ListingSyncEnabled: v.GetBool("LISTING_SYNC_ENABLED"),
			ListingSyncSpec:    v.GetString("LISTING_SYNC_SPEC"),
			ListingPageSize:    v.GetInt("LISTING_PAGE_SIZE"),
			ListingMaxPages:    v.GetInt("LISTING_MAX_PAGES"),
		},
	}
}

// ParseList 解析逗号分隔字符串、JSON 数组字符串或列表，结果为空时返回 fallback
func ParseList(raw any, fallback []string) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		s := strings.TrimSpace(val)
		if strings.HasPrefix(s, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				items = arr
				break
			}
		}
		items = strings.Split(s, ",")
	case []string:
		items = val
	case []any:
		for _, it := range val {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
