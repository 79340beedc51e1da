package db

import "time"

// Blog categories accepted by the admin panel.
const (
	CategoryTechnology = "Technology"
	CategoryStartup    = "Startup"
	CategoryLifestyle  = "Lifestyle"
	CategoryFinance    = "Finance"
)

// Categories lists every category in display order.
var Categories = []string{CategoryTechnology, CategoryStartup, CategoryLifestyle, CategoryFinance}

// IsValidCategory reports whether category belongs to the fixed set.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Blog 定义了博客文章模型
type Blog struct {
	ID          uint      `gorm:"primaryKey" json:"_id"`
	Title       string    `gorm:"not null" json:"title"`
	SubTitle    string    `gorm:"not null" json:"subTitle"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"index;not null" json:"category"`
	Image       string    `gorm:"not null" json:"image"`
	ImagePath   string    `json:"-"`
	IsPublished bool      `gorm:"index;not null;default:false" json:"isPublished"`
	CreatedAt   time.Time `gorm:"index;<-:create" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
