package usecase

import (
	"context"
	"net/http"

	"storefront/internal/pricing"
	repo "storefront/internal/repository"
	"storefront/internal/wishlist"
)

// WishlistUsecase は /wishlist の業務ロジックです。
type WishlistUsecase struct {
	wishlistRepo repo.WishlistSnapshotRepository
	productRepo  repo.ProductRepository
}

func NewWishlistUsecase(
	wishlistRepo repo.WishlistSnapshotRepository,
	productRepo repo.ProductRepository,
) *WishlistUsecase {
	return &WishlistUsecase{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
	}
}

// price は登録時点の定価、effective_price は割引適用後の価格。
type WishlistItemResponse struct {
	ProductID       int64  `json:"product_id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DiscountPercent int64  `json:"discount_percent"`
	EffectivePrice  int64  `json:"effective_price"`
}

type WishlistResponse struct {
	Items []WishlistItemResponse `json:"items"`
	Count int64                  `json:"count"`
}

// ToggleWishlistResponse のaddedはトグルの結果、追加されたかどうか。
type ToggleWishlistResponse struct {
	Added bool                   `json:"added"`
	Items []WishlistItemResponse `json:"items"`
	Count int64                  `json:"count"`
}

type CleanupWishlistResponse struct {
	Changed bool                   `json:"changed"`
	Items   []WishlistItemResponse `json:"items"`
	Count   int64                  `json:"count"`
}

type userWishlistPersister struct {
	repo   repo.WishlistSnapshotRepository
	userID int64
}

func (p userWishlistPersister) Load(ctx context.Context) (wishlist.Snapshot, error) {
	return p.repo.Load(ctx, p.userID)
}

func (p userWishlistPersister) Save(ctx context.Context, snap wishlist.Snapshot) error {
	return p.repo.Save(ctx, p.userID, snap)
}

func (u *WishlistUsecase) loadStore(ctx context.Context, userID int64) (*wishlist.Store, error) {
	s, err := wishlist.NewStore(ctx, userWishlistPersister{repo: u.wishlistRepo, userID: userID})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return s, nil
}

// GetWishlist はウィッシュリスト取得（無ければ空）。
func (u *WishlistUsecase) GetWishlist(ctx context.Context, userID int64) (WishlistResponse, error) {
	if userID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	s, err := u.loadStore(ctx, userID)
	if err != nil {
		return WishlistResponse{}, err
	}
	items := toWishlistItems(s)
	return WishlistResponse{Items: items, Count: int64(len(items))}, nil
}

// AddToWishlist は商品を追加。登録済みなら409。
func (u *WishlistUsecase) AddToWishlist(ctx context.Context, userID int64, productID int64) (WishlistResponse, error) {
	if userID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	e, herr := u.resolveEntry(ctx, productID)
	if herr != nil {
		return WishlistResponse{}, herr
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return WishlistResponse{}, herr
	}

	if err := s.Add(ctx, e); err != nil {
		if err == wishlist.ErrAlreadyExists {
			return WishlistResponse{}, NewHTTPError(http.StatusConflict, "already in wishlist")
		}
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items := toWishlistItems(s)
	return WishlistResponse{Items: items, Count: int64(len(items))}, nil
}

// RemoveFromWishlist は商品を外す。無ければ何もしないで現状を返す。
func (u *WishlistUsecase) RemoveFromWishlist(ctx context.Context, userID int64, productID int64) (WishlistResponse, error) {
	if userID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return WishlistResponse{}, herr
	}

	if err := s.Remove(ctx, productID); err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items := toWishlistItems(s)
	return WishlistResponse{Items: items, Count: int64(len(items))}, nil
}

// ToggleWishlist は無ければ追加、あれば削除。
func (u *WishlistUsecase) ToggleWishlist(ctx context.Context, userID int64, productID int64) (ToggleWishlistResponse, error) {
	if userID <= 0 {
		return ToggleWishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return ToggleWishlistResponse{}, herr
	}

	// 削除側のトグルは商品がカタログから消えていても成立させる
	var e wishlist.Entry
	if s.Contains(productID) {
		e = wishlist.Entry{ProductID: productID}
	} else {
		resolved, herr := u.resolveEntry(ctx, productID)
		if herr != nil {
			return ToggleWishlistResponse{}, herr
		}
		e = resolved
	}

	added, err := s.Toggle(ctx, e)
	if err != nil {
		return ToggleWishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items := toWishlistItems(s)
	return ToggleWishlistResponse{Added: added, Items: items, Count: int64(len(items))}, nil
}

// CleanupWishlist はカタログに存在しない商品を取り除く（冪等）。
func (u *WishlistUsecase) CleanupWishlist(ctx context.Context, userID int64) (CleanupWishlistResponse, error) {
	if userID <= 0 {
		return CleanupWishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	ids, err := u.productRepo.ListActiveIDs(ctx)
	if err != nil {
		return CleanupWishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return CleanupWishlistResponse{}, herr
	}

	changed, err := s.Cleanup(ctx, ids)
	if err != nil {
		return CleanupWishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items := toWishlistItems(s)
	return CleanupWishlistResponse{Changed: changed, Items: items, Count: int64(len(items))}, nil
}

// 公開中の商品からEntryを作る
func (u *WishlistUsecase) resolveEntry(ctx context.Context, productID int64) (wishlist.Entry, error) {
	if productID <= 0 {
		return wishlist.Entry{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return wishlist.Entry{}, NewHTTPError(http.StatusBadRequest, "invalid")
	}
	if err != nil {
		return wishlist.Entry{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return wishlist.Entry{}, NewHTTPError(http.StatusBadRequest, "invalid")
	}

	return wishlist.Entry{
		ProductID:       p.ID,
		Name:            p.Name,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
	}, nil
}

func toWishlistItems(s *wishlist.Store) []WishlistItemResponse {
	entries := s.Entries()
	items := make([]WishlistItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, WishlistItemResponse{
			ProductID:       e.ProductID,
			Name:            e.Name,
			Price:           e.Price,
			DiscountPercent: e.DiscountPercent,
			EffectivePrice:  pricing.EffectivePrice(e.Price, e.DiscountPercent),
		})
	}
	return items
}
