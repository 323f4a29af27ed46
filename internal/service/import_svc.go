package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dropship_erp/internal/model"
	"dropship_erp/internal/queue"
	"dropship_erp/internal/repository"
	"dropship_erp/pkg/cj"
)

// ==================== 外部依赖 ====================

// SupplierClient CJ 商品接口
type SupplierClient interface {
	GetProduct(ctx context.Context, pid string) (*cj.Response, error)
	GetProductBy(ctx context.Context, lookup cj.ProductLookup) (*cj.Response, error)
	GetVariantsByPid(ctx context.Context, pid string) (*cj.Response, error)
}

// CategoryResolver 分类解析，不创建分类
type CategoryResolver interface {
	Resolve(ctx context.Context, p Payload) (*model.Category, error)
	ResolveMany(ctx context.Context, payloads []Payload) (map[string]*model.Category, error)
}

// MarginLogger 毛利审计
type MarginLogger interface {
	LogProduct(ctx context.Context, p *model.Product, ev MarginEvent) error
	LogVariant(ctx context.Context, v *model.ProductVariant, ev MarginEvent) error
}

// VariantSyncer 变体同步
type VariantSyncer interface {
	Sync(ctx context.Context, product *model.Product, raw []map[string]any, optionKeys []string, locks Locks) Outcome
}

// MediaSyncer 图片 / 视频同步
type MediaSyncer interface {
	Sync(ctx context.Context, product *model.Product, images, videos []string) Outcome
}

// ReviewSyncer 评价同步
type ReviewSyncer interface {
	Sync(ctx context.Context, product *model.Product, opts ReviewOptions) (int, error)
}

// JobDispatcher 队列投递
type JobDispatcher interface {
	Dispatch(ctx context.Context, kind queue.Kind, productID int64, args map[string]any) Outcome
	DispatchBatch(ctx context.Context, kind queue.Kind, productIDs []int64, chunkSize int, args map[string]any) []Outcome
}

// TranslationSettings 翻译语言配置
type TranslationSettings struct {
	Locales      []string
	SourceLocale string
}

// ==================== 服务实现 ====================

// ImportService CJ 商品导入对账
type ImportService struct {
	products    repository.ProductRepository
	supplier    SupplierClient
	categories  CategoryResolver
	guard       *PricingGuard
	margins     MarginLogger
	variants    VariantSyncer
	media       MediaSyncer
	reviews     ReviewSyncer
	dispatcher  JobDispatcher
	translation TranslationSettings
	logger      *zap.Logger

	now func() time.Time
}

func NewImportService(
	products repository.ProductRepository,
	supplier SupplierClient,
	categories CategoryResolver,
	guard *PricingGuard,
	margins MarginLogger,
	variants VariantSyncer,
	media MediaSyncer,
	reviews ReviewSyncer,
	dispatcher JobDispatcher,
	translation TranslationSettings,
	logger *zap.Logger,
) *ImportService {
	if len(translation.Locales) == 0 {
		translation.Locales = []string{"en", "fr"}
	}
	if translation.SourceLocale == "" {
		translation.SourceLocale = "en"
	}
	return &ImportService{
		products:    products,
		supplier:    supplier,
		categories:  categories,
		guard:       guard,
		margins:     margins,
		variants:    variants,
		media:       media,
		reviews:     reviews,
		dispatcher:  dispatcher,
		translation: translation,
		logger:      logger,
		now:         time.Now,
	}
}

// ==================== 按 ID 导入 ====================

// ImportByPid 拉取商品详情后导入；下架时标记 removed 并返回 nil
func (s *ImportService) ImportByPid(ctx context.Context, pid string, opts ImportOptions) (*model.Product, error) {
	return s.ImportByLookup(ctx, cj.ProductLookup{PID: pid}, opts)
}

// ImportByLookup 按 pid / productSku / variantSku 导入
func (s *ImportService) ImportByLookup(ctx context.Context, lookup cj.ProductLookup, opts ImportOptions) (*model.Product, error) {
	var (
		resp *cj.Response
		err  error
	)
	if lookup.ProductSKU == "" && lookup.VariantSKU == "" {
		resp, err = s.supplier.GetProduct(ctx, lookup.PID)
	} else {
		resp, err = s.supplier.GetProductBy(ctx, lookup)
	}
	if err == nil {
		err = cj.AsError(resp)
	}
	if err != nil {
		if cj.IsDelisted(err) && lookup.PID != "" {
			return nil, s.markDelisted(ctx, lookup.PID, err)
		}
		return nil, fmt.Errorf("获取 CJ 商品详情失败: %w", err)
	}

	data := resp.DataMap()
	if len(data) == 0 {
		s.logger.Info("CJ 商品详情为空", zap.String("pid", lookup.PID), zap.String("request_id", resp.RequestID))
		return nil, nil
	}
	return s.ImportFromPayload(ctx, data, opts)
}

// ==================== 载荷导入 ====================

// ImportFromPayload 单个载荷对账: 规范化、过滤、计算字段、写库、派发副作用
func (s *ImportService) ImportFromPayload(ctx context.Context, raw map[string]any, opts ImportOptions) (*model.Product, error) {
	opts = opts.withDefaults(s.translation.Locales)

	p := Normalize(raw)
	if p.IsEmpty() {
		s.logger.Debug("跳过导入", zap.Error(ErrEmptyPayload), zap.Int("keys", len(raw)))
		return nil, nil
	}
	log := s.logger.With(zap.String("external_id", p.ExternalID))

	existing, err := s.findExisting(ctx, p.ExternalID)
	if err != nil {
		return nil, err
	}

	if !p.ShipsTo(opts.ShipToCountry) {
		log.Debug("仓库国家不匹配，跳过",
			zap.String("ship_to", opts.ShipToCountry),
			zap.Strings("warehouses", p.WarehouseCountries),
		)
		return existing, nil
	}

	if existing != nil {
		if opts.RespectSyncFlag && !existing.SyncEnabled {
			log.Debug("商品已关闭同步，跳过")
			return existing, nil
		}
		if !opts.UpdateExisting {
			return existing, nil
		}
	}

	locks := effectiveLocks(existing, opts.RespectLocks)

	rawVariants := p.Variants
	if !p.HasVariants() {
		fetched, err := s.fetchVariants(ctx, p.ExternalID)
		if cj.IsDelisted(err) {
			return nil, s.markDelisted(ctx, p.ExternalID, err)
		}
		if err != nil {
			return nil, err
		}
		rawVariants = fetched
		p.Variants = fetched

		// 载荷本身无仓库数据时，按拉取到的变体库存再过滤一次
		p.WarehouseCountries = warehouseCountries(p.Raw, fetched)
		if !p.ShipsTo(opts.ShipToCountry) {
			log.Debug("变体仓库国家不匹配，跳过",
				zap.String("ship_to", opts.ShipToCountry),
				zap.Strings("warehouses", p.WarehouseCountries),
			)
			return existing, nil
		}
	}

	category, err := s.categories.Resolve(ctx, p)
	if err != nil {
		log.Warn("解析分类失败", zap.Error(err))
		category = nil
	}

	next := s.buildProduct(p, existing, category, locks, rawVariants, opts)
	// 列表项覆盖已有商品且未取到变体时沿用已保存的变体
	rawVariants = mapList(next.Attributes["variants"])

	var changed []string
	if existing == nil {
		changed = []string{model.ChangedCreated}
	} else {
		changed = diffProduct(existing, next)
	}

	runVariants := opts.SyncVariants && !locks.Variants
	if runVariants {
		changed = appendUnique(changed, model.ChangedVariants)
	}
	next.ChangedFields = datatypes.JSONSlice[string](changed)

	before := decimal.Zero
	statusBefore := ""
	event := model.MarginEventProductCreated
	if existing != nil {
		before = existing.SellingPrice
		statusBefore = string(existing.Status)
		event = model.MarginEventProductUpdated
	}

	if err := s.persist(ctx, next, existing); err != nil {
		return nil, err
	}

	if err := s.margins.LogProduct(ctx, next, MarginEvent{
		Event:              event,
		SellingPriceBefore: before,
		StatusBefore:       statusBefore,
		Meta:               map[string]any{"changed_fields": changed},
	}); err != nil {
		log.Warn("记录毛利日志失败", zap.Error(err))
	}

	superset, err := s.runSideEffects(ctx, next, p, rawVariants, changed, locks, opts, log)
	if err != nil {
		return nil, err
	}

	if len(superset) > len(changed) {
		next.ChangedFields = datatypes.JSONSlice[string](superset)
		if err := s.products.UpdateFields(ctx, next.ID, map[string]interface{}{
			"changed_fields": next.ChangedFields,
		}); err != nil {
			log.Warn("回写 changed_fields 失败", zap.Error(err))
		}
	}

	return next, nil
}

func (s *ImportService) findExisting(ctx context.Context, externalID string) (*model.Product, error) {
	existing, err := s.products.GetByExternalID(ctx, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询商品 %s 失败: %w", externalID, err)
	}
	return existing, nil
}

// fetchVariants 超时视为无变体，下架错误原样返回，其它错误包装后返回
func (s *ImportService) fetchVariants(ctx context.Context, pid string) ([]map[string]any, error) {
	resp, err := s.supplier.GetVariantsByPid(ctx, pid)
	if err == nil {
		err = cj.AsError(resp)
	}
	switch {
	case err == nil:
		return resp.DataList(), nil
	case cj.IsDelisted(err):
		return nil, err
	case cj.IsTimeout(err):
		s.logger.Warn("获取变体超时，按无变体处理", zap.String("external_id", pid), zap.Error(err))
		return nil, nil
	}
	return nil, fmt.Errorf("获取商品 %s 变体失败: %w", pid, err)
}

func (s *ImportService) markDelisted(ctx context.Context, pid string, cause error) error {
	existing, err := s.findExisting(ctx, pid)
	if err != nil {
		return err
	}
	if existing == nil {
		s.logger.Info("CJ 商品已下架，本地不存在", zap.String("external_id", pid))
		return nil
	}
	if err := s.products.MarkRemoved(ctx, existing.ID); err != nil {
		return fmt.Errorf("标记商品 %s 下架失败: %w", pid, err)
	}
	s.logger.Info("CJ 商品已下架，已停用",
		zap.String("external_id", pid),
		zap.Int64("product_id", existing.ID),
		zap.NamedError("cause", cause),
	)
	return nil
}

// ==================== 字段计算 ====================

// buildProduct 计算导入后的商品字段，existing 为 nil 时按新建处理
func (s *ImportService) buildProduct(p Payload, existing *model.Product, category *model.Category, locks Locks, rawVariants []map[string]any, opts ImportOptions) *model.Product {
	now := s.now()
	next := &model.Product{}
	if existing != nil {
		cp := *existing
		next = &cp
	} else {
		// 新建: 草稿、未上架、非推荐
		next.ExternalID = p.ExternalID
		next.Status = model.ProductStatusDraft
		next.SyncEnabled = opts.DefaultSyncEnabled
	}

	next.Source = model.SourceCJ
	next.Name = ProductName(p.Name, p.ExternalID)
	if next.Slug == "" {
		next.Slug = Slugify(next.Name, p.ExternalID)
	}

	// 未解析到分类时保留原分类
	if category != nil {
		id := category.ID
		next.CategoryID = &id
		next.Category = category
	}

	description := CleanDescription(p.Description)
	keepDescription := existing != nil && (locks.Description || (p.Shape == ShapeListing && description == ""))
	if !keepDescription {
		next.Description = description
	}

	next.Attributes = mergeAttributes(existing, p, rawVariants)

	price, hasPrice := p.ResolvePrice()
	next.CostPrice, next.SellingPrice = s.computePrices(existing, price, hasPrice, locks)

	next.Currency = currencyOr(p.Currency, model.DefaultCurrency)
	next.LastSyncedAt = &now
	return next
}

// computePrices 返回 (成本价, 售价)
func (s *ImportService) computePrices(existing *model.Product, price decimal.Decimal, hasPrice bool, locks Locks) (decimal.Decimal, decimal.Decimal) {
	if hasPrice && price.IsNegative() {
		price = decimal.Zero
	}

	var cost decimal.Decimal
	switch {
	case locks.Price && existing != nil:
		cost = existing.CostPrice
	case hasPrice:
		cost = price
	case existing != nil:
		cost = existing.CostPrice
	default:
		cost = decimal.Zero
	}
	cost = cost.Round(2)

	minPrice := s.guard.MinSellingPrice(cost)
	if locks.Price && existing != nil {
		selling := existing.SellingPrice
		if !selling.IsPositive() || selling.LessThan(minPrice) {
			selling = minPrice
		}
		return cost, selling
	}
	return cost, minPrice
}

// mergeAttributes existing ∪ 载荷 attributes ∪ {pid, payload, variants}，后者覆盖前者
// 列表项不含变体、图集与描述，覆盖已有商品时保留已保存的详情载荷与变体，列表项另存 listing_payload
func mergeAttributes(existing *model.Product, p Payload, rawVariants []map[string]any) datatypes.JSONMap {
	merged := datatypes.JSONMap{}
	if existing != nil {
		for k, v := range existing.Attributes {
			merged[k] = v
		}
	}
	for k, v := range p.Attributes {
		merged[k] = v
	}
	merged["pid"] = p.ExternalID

	overListing := existing != nil && p.Shape == ShapeListing
	if overListing && len(mapValue(merged["payload"])) > 0 {
		merged["listing_payload"] = p.Raw
	} else {
		merged["payload"] = p.Raw
	}
	if overListing && len(rawVariants) == 0 && len(mapList(merged["variants"])) > 0 {
		return merged
	}
	merged["variants"] = anyList(rawVariants)
	return merged
}

func anyList(list []map[string]any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

// diffProduct 实际值发生变化的字段，价格按浮点比较
func diffProduct(before, after *model.Product) []string {
	changed := []string{}
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if before.Description != after.Description {
		changed = append(changed, "description")
	}
	if !sameCategory(before.CategoryID, after.CategoryID) {
		changed = append(changed, "category_id")
	}
	if !samePrice(before.CostPrice, after.CostPrice) {
		changed = append(changed, "cost_price")
	}
	if !samePrice(before.SellingPrice, after.SellingPrice) {
		changed = append(changed, "selling_price")
	}
	if before.Currency != after.Currency {
		changed = append(changed, "currency")
	}
	return changed
}

func samePrice(a, b decimal.Decimal) bool {
	af, _ := a.Float64()
	bf, _ := b.Float64()
	return af == bf
}

func sameCategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// jsonEqual 按 JSON 编码比较，null 与空对象 / 空数组视为相等
func jsonEqual(a, b any) bool {
	return canonicalJSON(a) == canonicalJSON(b)
}

func canonicalJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	switch s := string(raw); s {
	case "null", "{}", "[]":
		return ""
	default:
		return s
	}
}

// ==================== 持久化 ====================

func (s *ImportService) persist(ctx context.Context, next, existing *model.Product) error {
	if existing == nil {
		if err := s.products.Create(ctx, next); err != nil {
			return fmt.Errorf("创建商品 %s 失败: %w", next.ExternalID, err)
		}
		return nil
	}
	if err := s.products.Update(ctx, next); err != nil {
		return fmt.Errorf("更新商品 %s 失败: %w", next.ExternalID, err)
	}
	return nil
}

// ==================== 副作用 ====================

// runSideEffects 派发 / 执行副作用，返回 changed 的超集
// 只有严格模式下的评价同步失败会返回错误
func (s *ImportService) runSideEffects(
	ctx context.Context,
	product *model.Product,
	p Payload,
	rawVariants []map[string]any,
	changed []string,
	locks Locks,
	opts ImportOptions,
	log *zap.Logger,
) ([]string, error) {
	superset := slices.Clone(changed)
	// 列表项没有图集与规格名，从 attributes.payload 取
	source := p
	if p.Shape == ShapeListing {
		source = Normalize(mapValue(product.Attributes["payload"]))
	}
	report := func(name string, o Outcome) {
		if o.Failed() {
			log.Warn("副作用执行失败",
				zap.String("effect", name),
				zap.Int64("product_id", product.ID),
				zap.String("reason", o.Reason),
			)
			return
		}
		log.Debug("副作用完成", zap.String("effect", name), zap.Stringer("outcome", o))
		for _, c := range o.Changed {
			superset = appendUnique(superset, c)
		}
	}

	if opts.GenerateSeo && (product.MetaTitle == "" || product.MetaDescription == "") {
		report("seo", s.dispatcher.Dispatch(ctx, queue.KindGenerateSEO, product.ID, map[string]any{
			"locale": s.translation.SourceLocale,
		}))
	}

	if opts.SyncVariants && !locks.Variants {
		report("variants", s.variants.Sync(ctx, product, rawVariants, OptionKeys(source.Raw), locks))
		report("compare_at", s.dispatcher.Dispatch(ctx, queue.KindGenerateCompareAt, product.ID, nil))
	}

	if opts.SyncImages && !locks.Images {
		report("media", s.media.Sync(ctx, product, source.Images, source.Videos))
	}

	if opts.Translate && needsTranslation(changed) {
		report("translation", s.dispatcher.Dispatch(ctx, queue.KindTranslateProduct, product.ID, map[string]any{
			"locales":       opts.Locales,
			"source_locale": s.translation.SourceLocale,
			"fields":        translatableChanges(changed),
		}))
	}

	if opts.SyncReviews {
		n, err := s.reviews.Sync(ctx, product, opts.reviewOptions())
		if err != nil {
			if opts.ReviewThrowOnFailure {
				return nil, fmt.Errorf("同步商品 %s 评价失败: %w", product.ExternalID, err)
			}
			report("reviews", failed(err))
		} else {
			log.Debug("评价同步完成", zap.Int("count", n))
		}
	}

	return superset, nil
}

var translatableFields = []string{"name", "description", model.ChangedVariants}

func needsTranslation(changed []string) bool {
	if slices.Contains(changed, model.ChangedCreated) {
		return true
	}
	return len(translatableChanges(changed)) > 0
}

func translatableChanges(changed []string) []string {
	var out []string
	for _, f := range translatableFields {
		if slices.Contains(changed, f) {
			out = append(out, f)
		}
	}
	return out
}
