package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/cart"
	repo "storefront/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// カート本体のルール（バリアント同一性・在庫ガード）は cart.Store 側に置き、
// ここでは商品の解決とHTTPエラーへの変換だけを行います。
type CartUsecase struct {
	cartRepo    repo.CartSnapshotRepository
	productRepo repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartSnapshotRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// カート明細のレスポンス。key は明細の操作（PATCH/DELETE）に使う。
// price は追加時点のスナップショット価格を返します。
type CartLineResponse struct {
	Key           string `json:"key"`
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	SelectedSize  string `json:"selected_size,omitempty"`
	SelectedColor string `json:"selected_color,omitempty"`
	Price         int64  `json:"price"`
	Quantity      int64  `json:"quantity"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Total int64              `json:"total"`
	Count int64              `json:"count"`
}

type AddCartInput struct {
	ProductID     int64
	Quantity      int64
	SelectedSize  string
	SelectedColor string
}

type UpdateCartLineInput struct {
	Quantity int64
}

// バリアント編集の入力。nilのフィールドは変更しない。
type UpdateCartVariantInput struct {
	ProductID     int64
	OriginalKey   string
	SelectedSize  *string
	SelectedColor *string
	Quantity      *int64
}

// CartSnapshotRepository をユーザー固定の cart.Persister に読み替える
type userCartPersister struct {
	repo   repo.CartSnapshotRepository
	userID int64
}

func (p userCartPersister) Load(ctx context.Context) (cart.Snapshot, error) {
	return p.repo.Load(ctx, p.userID)
}

func (p userCartPersister) Save(ctx context.Context, snap cart.Snapshot) error {
	return p.repo.Save(ctx, p.userID, snap)
}

// 保存済みスナップショットからユーザーのStoreを組み立てる
func (u *CartUsecase) loadStore(ctx context.Context, userID int64) (*cart.Store, error) {
	s, err := cart.NewStore(ctx, userCartPersister{repo: u.cartRepo, userID: userID})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return s, nil
}

// GetCart はカート取得（無ければ空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	s, err := u.loadStore(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(s), nil
}

// AddToCart はカートに追加（同一バリアントは数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return CartResponse{}, herr
	}

	if err := s.AddLine(ctx, p, in.Quantity, in.SelectedSize, in.SelectedColor); err != nil {
		return CartResponse{}, cartErrToHTTP(err)
	}
	return toCartResponse(s), nil
}

// 数量変更。0以下は明細削除として扱う（Store側のルール）。
func (u *CartUsecase) UpdateLineQuantity(ctx context.Context, userID int64, key string, in UpdateCartLineInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if key == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid key")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return CartResponse{}, herr
	}

	if err := s.UpdateQuantity(ctx, key, in.Quantity); err != nil {
		return CartResponse{}, cartErrToHTTP(err)
	}
	return toCartResponse(s), nil
}

// バリアント編集（キー衝突時は衝突先に数量を合算する）。
func (u *CartUsecase) UpdateVariant(ctx context.Context, userID int64, in UpdateCartVariantInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return CartResponse{}, herr
	}

	upd := cart.VariantUpdate{
		SelectedSize:  in.SelectedSize,
		SelectedColor: in.SelectedColor,
		Quantity:      in.Quantity,
	}
	if err := s.UpdateVariant(ctx, in.ProductID, upd, in.OriginalKey); err != nil {
		return CartResponse{}, cartErrToHTTP(err)
	}
	return toCartResponse(s), nil
}

// 明細削除（無ければ何もせず現状を返す）。
func (u *CartUsecase) RemoveLine(ctx context.Context, userID int64, key string) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if key == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid key")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return CartResponse{}, herr
	}

	if err := s.RemoveLine(ctx, key); err != nil {
		return CartResponse{}, cartErrToHTTP(err)
	}
	return toCartResponse(s), nil
}

// カートを空にする。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	s, herr := u.loadStore(ctx, userID)
	if herr != nil {
		return CartResponse{}, herr
	}

	if err := s.Clear(ctx); err != nil {
		return CartResponse{}, cartErrToHTTP(err)
	}
	return toCartResponse(s), nil
}

func toCartResponse(s *cart.Store) CartResponse {
	lines := s.Lines()
	items := make([]CartLineResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, CartLineResponse{
			Key:           l.Key(),
			ProductID:     l.ProductID,
			Name:          l.Name,
			SelectedSize:  l.SelectedSize,
			SelectedColor: l.SelectedColor,
			Price:         l.UnitPrice,
			Quantity:      l.Quantity,
		})
	}
	return CartResponse{Items: items, Total: s.Total(), Count: s.Count()}
}

// cart.Store のエラーを利用者向けのHTTPエラーに読み替える。
// 在庫超過は残り数を添えて返す。
func cartErrToHTTP(err error) error {
	var oos *cart.OutOfStockError
	if errors.As(err, &oos) {
		return NewHTTPError(http.StatusBadRequest, "out of stock")
	}

	var ins *cart.InsufficientStockError
	if errors.As(err, &ins) {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("stock exceeded (available %d)", ins.Available))
	}

	var iv *cart.InvalidVariantError
	if errors.As(err, &iv) {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", iv.Field))
	}

	return NewHTTPError(http.StatusInternalServerError, "db error")
}
