package model

import "time"

// ユーザーごとのウィッシュリスト全体を1行で保持する。
type WishlistSnapshot struct {
	UserID      int64     `gorm:"primaryKey" json:"user_id"`
	EntriesJSON string    `gorm:"type:text;not null" json:"-"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
