package db

import "time"

// Comment 是读者提交、等待审核的评论
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"_id"`
	BlogID     uint      `gorm:"index;not null" json:"blogId"`
	Blog       *Blog     `json:"blog,omitempty"`
	Name       string    `gorm:"not null" json:"name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsApproved bool      `gorm:"index;not null;default:false" json:"isApproved"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
