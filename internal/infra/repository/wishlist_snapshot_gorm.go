package repository

import (
	"context"
	"encoding/json"
	"errors"

	"storefront/internal/domain/model"
	"storefront/internal/wishlist"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WishlistSnapshotGormRepository struct {
	db *gorm.DB
}

// DI
func NewWishlistSnapshotGormRepository(db *gorm.DB) *WishlistSnapshotGormRepository {
	return &WishlistSnapshotGormRepository{db: db}
}

func (r *WishlistSnapshotGormRepository) Load(ctx context.Context, userID int64) (wishlist.Snapshot, error) {
	var row model.WishlistSnapshot

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wishlist.Snapshot{Entries: []wishlist.Entry{}}, nil
	}
	if err != nil {
		return wishlist.Snapshot{}, err
	}

	var snap wishlist.Snapshot
	if err := json.Unmarshal([]byte(row.EntriesJSON), &snap); err != nil {
		return wishlist.Snapshot{Entries: []wishlist.Entry{}}, nil
	}
	if snap.Entries == nil {
		snap.Entries = []wishlist.Entry{}
	}
	return snap, nil
}

func (r *WishlistSnapshotGormRepository) Save(ctx context.Context, userID int64, snap wishlist.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	row := model.WishlistSnapshot{
		UserID:      userID,
		EntriesJSON: string(b),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"entries_json", "updated_at"}),
		}).
		Create(&row).Error
}
