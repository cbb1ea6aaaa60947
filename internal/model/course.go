package model

import "github.com/shopspring/decimal"

// swagger:model Course
type Course struct {
	UUIDBase
	Title       string          `gorm:"size:200;not null" json:"title"`
	Slug        string          `gorm:"size:200;uniqueIndex" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Published   bool            `gorm:"default:true" json:"published"`
}

func (Course) TableName() string {
	return "courses"
}
