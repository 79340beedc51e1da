package service

import (
	"context"
	"errors"
	"strings"

	"github.com/quickblog/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Comment moderation filters for the admin list.
const (
	CommentStatusAll      = "all"
	CommentStatusApproved = "approved"
	CommentStatusPending  = "pending"
)

// CommentService handles reader submissions and moderation.
type CommentService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// CommentInput represents a reader submission.
type CommentInput struct {
	BlogID  uint
	Name    string
	Content string
}

// NewCommentService creates a CommentService instance.
func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb, logger: zap.NewNop()}
}

// SetLogger 设置服务日志。
func (s *CommentService) SetLogger(logger *zap.Logger) {
	s.logger = loggerOrNop(logger)
}

// Submit stores a new comment awaiting approval.
func (s *CommentService) Submit(ctx context.Context, input CommentInput) error {
	name := SanitizePlainText(input.Name)
	content := SanitizePlainText(input.Content)
	if name == "" {
		return invalid("name", "name is required")
	}
	if content == "" {
		return invalid("content", "content is required")
	}
	if input.BlogID == 0 {
		return invalid("blogId", "blogId is required")
	}

	var blog db.Blog
	if err := s.db.WithContext(ctx).Select("id").First(&blog, input.BlogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("blogId", "blog does not exist")
		}
		return storeError("lookup blog", err)
	}

	comment := db.Comment{
		BlogID:     blog.ID,
		Name:       name,
		Content:    content,
		IsApproved: false,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return storeError("create comment", err)
	}

	s.logger.Info("comment submitted", zap.Uint("comment_id", comment.ID), zap.Uint("blog_id", comment.BlogID))
	return nil
}

// ListApproved returns approved comments for a blog, newest first.
func (s *CommentService) ListApproved(ctx context.Context, blogID uint) ([]db.Comment, error) {
	var comments []db.Comment
	if err := s.db.WithContext(ctx).
		Where("blog_id = ? AND is_approved = ?", blogID, true).
		Order("created_at desc, id desc").
		Find(&comments).Error; err != nil {
		return nil, storeError("list approved comments", err)
	}
	return comments, nil
}

// List returns comments for the moderation screen with their blog preloaded.
func (s *CommentService) List(ctx context.Context, status string) ([]db.Comment, error) {
	query := s.db.WithContext(ctx).Preload("Blog").Order("created_at desc, id desc")

	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", CommentStatusAll:
	case CommentStatusApproved:
		query = query.Where("is_approved = ?", true)
	case CommentStatusPending:
		query = query.Where("is_approved = ?", false)
	default:
		return nil, invalid("status", "status must be all, approved or pending")
	}

	var comments []db.Comment
	if err := query.Find(&comments).Error; err != nil {
		return nil, storeError("list comments", err)
	}
	return comments, nil
}

// Approve marks a comment as approved.
func (s *CommentService) Approve(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&db.Comment{}).Where("id = ?", id).Update("is_approved", true)
	if result.Error != nil {
		return storeError("approve comment", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// Delete removes a comment.
func (s *CommentService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&db.Comment{}, id)
	if result.Error != nil {
		return storeError("delete comment", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// DeleteOrphans removes comments whose blog no longer exists and returns how many were removed.
func (s *CommentService) DeleteOrphans(ctx context.Context) (int64, error) {
	tx := s.db.WithContext(ctx)
	existing := tx.Model(&db.Blog{}).Select("id")
	result := tx.Where("blog_id NOT IN (?)", existing).Delete(&db.Comment{})
	if result.Error != nil {
		return 0, storeError("delete orphan comments", result.Error)
	}
	return result.RowsAffected, nil
}
