package service

import (
	"context"

	"github.com/quickblog/internal/db"
	"gorm.io/gorm"
)

const (
	defaultDashboardPage     = 1
	defaultDashboardPageSize = 10
)

// DashboardSummary aggregates counters and the recent blog page for the admin dashboard.
type DashboardSummary struct {
	Blogs       int64     `json:"blogs"`
	Comments    int64     `json:"comments"`
	Drafts      int64     `json:"drafts"`
	RecentBlogs []db.Blog `json:"recentBlogs"`
	Page        int       `json:"page"`
	PageSize    int       `json:"limit"`
	TotalPages  int       `json:"totalPages"`
}

// DashboardService 提供后台首页的只读统计。
// 各项计数与分页相互独立查询，并发写入时数字可能不完全吻合。
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a DashboardService instance.
func NewDashboardService(gdb *gorm.DB) *DashboardService {
	return &DashboardService{db: gdb}
}

// Summary returns counts and the requested page of blogs, newest first.
func (s *DashboardService) Summary(ctx context.Context, page, pageSize int) (*DashboardSummary, error) {
	result := &DashboardSummary{
		Page:     normalizePage(page),
		PageSize: normalizePerPage(pageSize, defaultDashboardPageSize),
	}

	gdb := s.db.WithContext(ctx)
	if err := gdb.Model(&db.Blog{}).Count(&result.Blogs).Error; err != nil {
		return nil, storeError("count blogs", err)
	}
	if err := gdb.Model(&db.Comment{}).Count(&result.Comments).Error; err != nil {
		return nil, storeError("count comments", err)
	}
	if err := gdb.Model(&db.Blog{}).Where("is_published = ?", false).Count(&result.Drafts).Error; err != nil {
		return nil, storeError("count drafts", err)
	}

	offset := (result.Page - 1) * result.PageSize
	recent := make([]db.Blog, 0, result.PageSize)
	if err := gdb.Order("created_at desc, id desc").
		Limit(result.PageSize).
		Offset(offset).
		Find(&recent).Error; err != nil {
		return nil, storeError("list recent blogs", err)
	}

	result.RecentBlogs = recent
	result.TotalPages = calculateTotalPages(result.Blogs, result.PageSize)
	return result, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return defaultDashboardPage
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage < 1 {
		return fallback
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if total == 0 || perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
