package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
)

// CategoryService 供应商分类映射
type CategoryService struct {
	repo   repository.CategoryRepository
	source string
}

func NewCategoryService(repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo, source: model.SourceCJ}
}

// Resolve 按从深到浅的顺序返回第一个已存在的分类，不创建分类
func (s *CategoryService) Resolve(ctx context.Context, p Payload) (*model.Category, error) {
	if len(p.CategoryIDs) == 0 {
		return nil, nil
	}

	found, err := s.repo.FindBySourceExternalIDs(ctx, s.source, p.CategoryIDs)
	if err != nil {
		return nil, fmt.Errorf("查询分类失败: %w", err)
	}
	return pickDeepest(p.CategoryIDs, found), nil
}

// ResolveMany 批量解析，返回 外部商品ID -> 分类，一次查询
func (s *CategoryService) ResolveMany(ctx context.Context, payloads []Payload) (map[string]*model.Category, error) {
	var ids []string
	for _, p := range payloads {
		for _, id := range p.CategoryIDs {
			ids = appendUnique(ids, id)
		}
	}

	result := make(map[string]*model.Category, len(payloads))
	if len(ids) == 0 {
		return result, nil
	}

	found, err := s.repo.FindBySourceExternalIDs(ctx, s.source, ids)
	if err != nil {
		return nil, fmt.Errorf("批量查询分类失败: %w", err)
	}
	for _, p := range payloads {
		if c := pickDeepest(p.CategoryIDs, found); c != nil {
			result[p.ExternalID] = c
		}
	}
	return result, nil
}

// ResolveOrCreatePlaceholder 未映射时以最深一级 ID 创建占位分类，供后台人工整理
func (s *CategoryService) ResolveOrCreatePlaceholder(ctx context.Context, p Payload) (*model.Category, error) {
	category, err := s.Resolve(ctx, p)
	if err != nil || category != nil || len(p.CategoryIDs) == 0 {
		return category, err
	}

	externalID := p.CategoryIDs[0]
	name := p.CategoryName
	if name == "" {
		name = fmt.Sprintf("CJ Category %s", externalID)
	}

	placeholder := &model.Category{
		Name:          name,
		Slug:          Slugify(name, externalID),
		Source:        s.source,
		ExternalID:    externalID,
		IsPlaceholder: true,
	}
	if err := s.repo.Create(ctx, placeholder); err != nil {
		// 并发创建时唯一索引冲突，回读已有记录
		existing, getErr := s.repo.GetBySourceExternalID(ctx, s.source, externalID)
		if getErr == nil {
			return existing, nil
		}
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("创建占位分类失败: %w", err)
		}
		return nil, getErr
	}
	return placeholder, nil
}

func pickDeepest(ids []string, found []model.Category) *model.Category {
	byExternal := make(map[string]*model.Category, len(found))
	for i := range found {
		byExternal[found[i].ExternalID] = &found[i]
	}
	for _, id := range ids {
		if c, ok := byExternal[id]; ok {
			return c
		}
	}
	return nil
}
