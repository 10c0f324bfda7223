package repository

import (
	"context"
	"encoding/json"
	"errors"

	"storefront/internal/cart"
	"storefront/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartSnapshotGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartSnapshotGormRepository(db *gorm.DB) *CartSnapshotGormRepository {
	return &CartSnapshotGormRepository{db: db}
}

// ユーザーのカートスナップショットを読む。行が無ければ空カート。
func (r *CartSnapshotGormRepository) Load(ctx context.Context, userID int64) (cart.Snapshot, error) {
	var row model.CartSnapshot

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart.Snapshot{Lines: []cart.Line{}}, nil
	}
	if err != nil {
		return cart.Snapshot{}, err
	}

	var snap cart.Snapshot
	if err := json.Unmarshal([]byte(row.LinesJSON), &snap); err != nil {
		//壊れたスナップショットは空として扱う（カートは再構築できる）
		return cart.Snapshot{Lines: []cart.Line{}}, nil
	}
	if snap.Lines == nil {
		snap.Lines = []cart.Line{}
	}
	return snap, nil
}

// スナップショットを丸ごと書き込む（upsert）。
func (r *CartSnapshotGormRepository) Save(ctx context.Context, userID int64, snap cart.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	row := model.CartSnapshot{
		UserID:    userID,
		LinesJSON: string(b),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lines_json", "updated_at"}),
		}).
		Create(&row).Error
}
