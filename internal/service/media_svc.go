package service

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"

	"dropship_erp/internal/model"
	"dropship_erp/internal/repository"
)

// MediaStorage 媒体镜像所需的存储能力
type MediaStorage interface {
	UploadFromURL(ctx context.Context, sourceURL string, filename string) (string, error)
}

// MediaService 图片 / 视频同步与对象存储镜像
type MediaService struct {
	repo    repository.ProductRepository
	storage MediaStorage
	logger  *zap.Logger
}

// NewMediaService storage 为 nil 时不做镜像
func NewMediaService(repo repository.ProductRepository, storage MediaStorage, logger *zap.Logger) *MediaService {
	return &MediaService{repo: repo, storage: storage, logger: logger}
}

// Sync URL 列表与已存在的不同时整体替换；空列表不清空已有媒体
func (s *MediaService) Sync(ctx context.Context, product *model.Product, images, videos []string) Outcome {
	var changed []string

	if len(images) > 0 {
		existing, err := s.repo.ListImages(ctx, product.ID)
		if err != nil {
			return failed(fmt.Errorf("查询商品图片失败: %w", err))
		}
		current := make([]string, len(existing))
		for i, img := range existing {
			current[i] = img.Url
		}
		if !slices.Equal(current, images) {
			rows := make([]model.ProductImage, len(images))
			for i, u := range images {
				rows[i] = model.ProductImage{ProductID: product.ID, Url: u, Position: i}
			}
			if err := s.repo.ReplaceImages(ctx, product.ID, rows); err != nil {
				return failed(fmt.Errorf("替换商品图片失败: %w", err))
			}
			changed = append(changed, model.ChangedImages)
		}
	}

	if len(videos) > 0 {
		existing, err := s.repo.ListVideos(ctx, product.ID)
		if err != nil {
			return failed(fmt.Errorf("查询商品视频失败: %w", err))
		}
		current := make([]string, len(existing))
		for i, v := range existing {
			current[i] = v.Url
		}
		if !slices.Equal(current, videos) {
			rows := make([]model.ProductVideo, len(videos))
			for i, u := range videos {
				rows[i] = model.ProductVideo{ProductID: product.ID, Url: u, Position: i}
			}
			if err := s.repo.ReplaceVideos(ctx, product.ID, rows); err != nil {
				return failed(fmt.Errorf("替换商品视频失败: %w", err))
			}
			changed = append(changed, model.ChangedVideos)
		}
	}

	if len(images) == 0 && len(videos) == 0 {
		return skipped("no media in payload")
	}
	return dispatched("inline", changed...)
}

// CanMirror 是否配置了对象存储
func (s *MediaService) CanMirror() bool {
	return s.storage != nil
}

// Mirror 将尚未镜像的图片复制到对象存储，返回成功条数
// 单张失败只记录日志
func (s *MediaService) Mirror(ctx context.Context, productID int64) (int, error) {
	if s.storage == nil {
		return 0, fmt.Errorf("对象存储未配置")
	}

	images, err := s.repo.ListImages(ctx, productID)
	if err != nil {
		return 0, err
	}

	mirrored := 0
	for _, img := range images {
		if img.StorageURL != "" {
			continue
		}
		src := img.Url
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}

		filename := fmt.Sprintf("products/%d/%d%s", productID, img.Position, imageExt(src))
		storageURL, err := s.storage.UploadFromURL(ctx, src, filename)
		if err != nil {
			s.logger.Warn("镜像图片失败",
				zap.Int64("product_id", productID),
				zap.String("url", img.Url),
				zap.Error(err),
			)
			continue
		}
		if err := s.repo.UpdateImageStorageURL(ctx, img.ID, storageURL); err != nil {
			return mirrored, err
		}
		mirrored++
	}
	return mirrored, nil
}

func imageExt(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	ext := strings.ToLower(path.Ext(u))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	}
	return ".jpg"
}
