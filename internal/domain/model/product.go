package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null" json:"price"`

	//割引率（0〜100）。0は割引なし。
	DiscountPercent int64 `gorm:"not null;default:0" json:"discount_percent"`

	Stock    int64 `gorm:"not null" json:"stock"`
	IsActive bool  `gorm:"not null;default:false" json:"is_active"`

	//選択可能なサイズ/カラー。空なら選択不要の商品。
	Sizes  StringList `gorm:"type:text" json:"sizes"`
	Colors StringList `gorm:"type:text" json:"colors"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
