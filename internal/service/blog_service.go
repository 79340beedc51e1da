package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/quickblog/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlogService wraps blog related database operations and the cover image workflow.
type BlogService struct {
	db       *gorm.DB
	images   ImageStore
	cache    PublishedCache
	logger   *zap.Logger
	recorder ExternalCallRecorder
}

// BlogInput represents the metadata accepted when creating or editing a blog.
// Edits replace every field; nothing is merged with the stored record.
type BlogInput struct {
	Title       string `json:"title"`
	SubTitle    string `json:"subTitle"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublished bool   `json:"isPublished"`
}

// DecodeBlogMetadata parses the JSON "blog" form field sent with multipart requests.
func DecodeBlogMetadata(raw []byte) (BlogInput, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return BlogInput{}, invalid("blog", "Blog data is missing")
	}
	var input BlogInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return BlogInput{}, invalid("blog", "Blog data is not valid JSON")
	}
	return input, nil
}

// NewBlogService creates a BlogService instance.
func NewBlogService(gdb *gorm.DB, images ImageStore) *BlogService {
	return &BlogService{
		db:       gdb,
		images:   images,
		logger:   zap.NewNop(),
		recorder: noopRecorder{},
	}
}

// SetCache enables read-through caching of the published list.
func (s *BlogService) SetCache(cache PublishedCache) {
	s.cache = cache
}

// SetLogger 设置服务日志。
func (s *BlogService) SetLogger(logger *zap.Logger) {
	s.logger = loggerOrNop(logger)
}

// SetRecorder 设置外部调用指标记录器。
func (s *BlogService) SetRecorder(recorder ExternalCallRecorder) {
	s.recorder = recorderOrNoop(recorder)
}

// Create validates input, uploads the cover and persists a new blog.
func (s *BlogService) Create(ctx context.Context, input BlogInput, cover *ImageUpload) (*db.Blog, error) {
	input = normalizeBlogInput(input)
	if err := validateBlogInput(input); err != nil {
		return nil, err
	}
	if cover == nil || len(cover.Data) == 0 {
		return nil, invalid("image", "Image file is missing")
	}

	imageURL, imagePath, err := s.uploadCover(ctx, *cover)
	if err != nil {
		return nil, err
	}

	blog := db.Blog{
		Title:       input.Title,
		SubTitle:    input.SubTitle,
		Description: input.Description,
		Category:    input.Category,
		Image:       imageURL,
		ImagePath:   imagePath,
		IsPublished: input.IsPublished,
	}
	if err := s.db.WithContext(ctx).Create(&blog).Error; err != nil {
		return nil, storeError("create blog", err)
	}

	s.invalidate(ctx)
	s.logger.Info("blog created", zap.Uint("blog_id", blog.ID), zap.Bool("published", blog.IsPublished))
	return &blog, nil
}

// Update replaces every field of an existing blog; the cover changes only when a new one is supplied.
func (s *BlogService) Update(ctx context.Context, id uint, input BlogInput, cover *ImageUpload) (*db.Blog, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	input = normalizeBlogInput(input)
	if err := validateBlogInput(input); err != nil {
		return nil, err
	}

	if cover != nil && len(cover.Data) > 0 {
		imageURL, imagePath, err := s.uploadCover(ctx, *cover)
		if err != nil {
			return nil, err
		}
		existing.Image = imageURL
		existing.ImagePath = imagePath
	}

	existing.Title = input.Title
	existing.SubTitle = input.SubTitle
	existing.Description = input.Description
	existing.Category = input.Category
	existing.IsPublished = input.IsPublished
	existing.UpdatedAt = time.Now()

	// 只更新已存在的行；Save 在未命中时会重新插入已删除的文章
	result := s.db.WithContext(ctx).
		Model(&db.Blog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":        existing.Title,
			"sub_title":    existing.SubTitle,
			"description":  existing.Description,
			"category":     existing.Category,
			"image":        existing.Image,
			"image_path":   existing.ImagePath,
			"is_published": existing.IsPublished,
			"updated_at":   existing.UpdatedAt,
		})
	if result.Error != nil {
		return nil, storeError("update blog", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrBlogNotFound
	}

	s.invalidate(ctx)
	return existing, nil
}

// Get fetches a blog by id.
func (s *BlogService) Get(ctx context.Context, id uint) (*db.Blog, error) {
	var blog db.Blog
	if err := s.db.WithContext(ctx).First(&blog, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, storeError("get blog", err)
	}
	return &blog, nil
}

// ListPublished returns published blogs, newest first.
func (s *BlogService) ListPublished(ctx context.Context) ([]db.Blog, error) {
	var generation uint64
	if s.cache != nil {
		if blogs, ok := s.cache.GetPublished(ctx); ok {
			return blogs, nil
		}
		generation = s.cache.Generation(ctx)
	}

	var blogs []db.Blog
	if err := s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at desc, id desc").
		Find(&blogs).Error; err != nil {
		return nil, storeError("list published blogs", err)
	}

	if s.cache != nil {
		s.cache.SetPublished(ctx, generation, blogs)
	}
	return blogs, nil
}

// ListAll returns all blogs ordered by created time descending.
func (s *BlogService) ListAll(ctx context.Context) ([]db.Blog, error) {
	var blogs []db.Blog
	if err := s.db.WithContext(ctx).Order("created_at desc, id desc").Find(&blogs).Error; err != nil {
		return nil, storeError("list blogs", err)
	}
	return blogs, nil
}

// Delete removes a blog and all of its comments in one transaction.
func (s *BlogService) Delete(ctx context.Context, id uint) error {
	var removedComments int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var blog db.Blog
		if err := tx.Select("id").First(&blog, id).Error; err != nil {
			return err
		}

		result := tx.Where("blog_id = ?", id).Delete(&db.Comment{})
		if result.Error != nil {
			return result.Error
		}
		removedComments = result.RowsAffected

		return tx.Delete(&db.Blog{}, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBlogNotFound
		}
		return storeError("delete blog", err)
	}

	s.invalidate(ctx)
	s.logger.Info("blog deleted", zap.Uint("blog_id", id), zap.Int64("comments_removed", removedComments))
	return nil
}

// TogglePublish flips the published flag and returns the new state.
func (s *BlogService) TogglePublish(ctx context.Context, id uint) (bool, error) {
	var published bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Blog{}).
			Where("id = ?", id).
			Update("is_published", gorm.Expr("NOT is_published"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var blog db.Blog
		if err := tx.Select("id", "is_published").First(&blog, id).Error; err != nil {
			return err
		}
		published = blog.IsPublished
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrBlogNotFound
		}
		return false, storeError("toggle publish", err)
	}

	s.invalidate(ctx)
	return published, nil
}

func (s *BlogService) uploadCover(ctx context.Context, cover ImageUpload) (string, string, error) {
	if s.images == nil {
		return "", "", upstreamError("image hosting", errors.New("no image store configured"))
	}

	start := time.Now()
	path, err := s.images.Upload(ctx, blogImageFolder, cover)
	s.recorder.RecordExternalCall("image", "upload", time.Since(start), err)
	if err != nil {
		return "", "", wrapImageError(err)
	}

	start = time.Now()
	imageURL, err := s.images.TransformURL(ctx, path, BlogCoverTransform)
	s.recorder.RecordExternalCall("image", "transform", time.Since(start), err)
	if err != nil {
		return "", "", wrapImageError(err)
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", "", upstreamError("image hosting", errors.New("empty delivery url"))
	}
	return imageURL, path, nil
}

func (s *BlogService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func wrapImageError(err error) error {
	if errors.Is(err, ErrValidation) {
		return err
	}
	return upstreamError("image hosting", err)
}

func normalizeBlogInput(input BlogInput) BlogInput {
	input.Title = strings.TrimSpace(input.Title)
	input.SubTitle = strings.TrimSpace(input.SubTitle)
	input.Category = strings.TrimSpace(input.Category)
	input.Description = strings.TrimSpace(SanitizeRichText(input.Description))
	return input
}

func validateBlogInput(input BlogInput) error {
	switch {
	case input.Title == "":
		return invalid("title", "title is required")
	case input.SubTitle == "":
		return invalid("subTitle", "subTitle is required")
	case input.Description == "":
		return invalid("description", "description is required")
	case input.Category == "":
		return invalid("category", "category is required")
	case !db.IsValidCategory(input.Category):
		return invalid("category", "category must be one of "+strings.Join(db.Categories, ", "))
	}
	return nil
}
