package repository

import (
	"context"

	"storefront/internal/cart"
)

// カートはユーザー単位のスナップショットとして丸ごと読み書きする。
// 行が無いユーザーは空のスナップショットを返す（エラーにしない）。
type CartSnapshotRepository interface {
	Load(ctx context.Context, userID int64) (cart.Snapshot, error)
	Save(ctx context.Context, userID int64, snap cart.Snapshot) error
}
