package repository

import (
	"context"

	"storefront/internal/wishlist"
)

// ウィッシュリストもカートと同じくスナップショット単位で読み書きする。
type WishlistSnapshotRepository interface {
	Load(ctx context.Context, userID int64) (wishlist.Snapshot, error)
	Save(ctx context.Context, userID int64, snap wishlist.Snapshot) error
}
