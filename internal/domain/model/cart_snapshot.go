package model

import "time"

// ユーザーごとのカート全体を1行で保持する。
// 明細はJSONで丸ごと保存し、更新は常にスナップショット単位で行う。
type CartSnapshot struct {
	UserID    int64     `gorm:"primaryKey" json:"user_id"`
	LinesJSON string    `gorm:"type:text;not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
