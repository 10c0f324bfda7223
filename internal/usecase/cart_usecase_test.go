package usecase_test

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

// CartSnapshotRepoFake はDBの1行をメモリで代用する
type CartSnapshotRepoFake struct {
	snaps    map[int64]cart.Snapshot
	saveErr  error
	saveCnt  int
	lastUser int64
}

func NewCartSnapshotRepoFake() *CartSnapshotRepoFake {
	return &CartSnapshotRepoFake{snaps: map[int64]cart.Snapshot{}}
}

func (f *CartSnapshotRepoFake) Load(ctx context.Context, userID int64) (cart.Snapshot, error) {
	return f.snaps[userID], nil
}

func (f *CartSnapshotRepoFake) Save(ctx context.Context, userID int64, snap cart.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saveCnt++
	f.lastUser = userID
	f.snaps[userID] = snap
	return nil
}

type CartProductRepoMock struct{ mock.Mock }

func (m *CartProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CartProductRepoMock) ListActiveIDs(ctx context.Context) ([]int64, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in CartUsecase tests")
}

func assertCartErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func tshirt() model.Product {
	return model.Product{
		ID:              3,
		Name:            "Tシャツ",
		Price:           3000,
		DiscountPercent: 20,
		Stock:           5,
		Sizes:           model.StringList{"S", "M", "L"},
		Colors:          model.StringList{"white", "black"},
		IsActive:        true,
	}
}

// =====================
// AddToCart
// =====================

func TestCartUsecase_AddToCart_InvalidQuantity(t *testing.T) {
	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), new(CartProductRepoMock))

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 3, Quantity: 0})
	assertCartErrContains(t, err, "invalid quantity")
}

func TestCartUsecase_AddToCart_ProductNotFound(t *testing.T) {
	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 99, Quantity: 1})
	assertCartErrContains(t, err, "invalid")
}

func TestCartUsecase_AddToCart_InactiveProduct(t *testing.T) {
	p := tshirt()
	p.IsActive = false

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
	assertCartErrContains(t, err, "invalid")
}

func TestCartUsecase_AddToCart_Success_DiscountedPrice(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	snapRepo := NewCartSnapshotRepoFake()
	uc := usecase.NewCartUsecase(snapRepo, pRepo)

	out, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{
		ProductID: p.ID, Quantity: 2, SelectedSize: "M", SelectedColor: "white",
	})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "3:M:white", out.Items[0].Key)
	// 3000の20%引き
	assert.Equal(t, int64(2400), out.Items[0].Price)
	assert.Equal(t, int64(4800), out.Total)
	assert.Equal(t, int64(2), out.Count)

	// スナップショットが保存されている
	assert.Equal(t, 1, snapRepo.saveCnt)
	assert.Equal(t, int64(1), snapRepo.lastUser)
}

func TestCartUsecase_AddToCart_SameVariantMerges(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 2, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)

	out, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(3), out.Items[0].Quantity)
}

func TestCartUsecase_AddToCart_DifferentSizeIsSeparateLine(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)

	out, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: "L", SelectedColor: "white"})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 2)
}

func TestCartUsecase_AddToCart_StockExceeded_ReportsAvailable(t *testing.T) {
	p := tshirt() // Stock: 5

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 4, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)

	_, err = uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 2, SelectedSize: "M", SelectedColor: "white"})
	assertCartErrContains(t, err, "stock exceeded (available 5)")
}

func TestCartUsecase_AddToCart_InvalidSize(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{
		ProductID: p.ID, Quantity: 1, SelectedSize: "XXL", SelectedColor: "white",
	})
	assertCartErrContains(t, err, "invalid size")
}

// =====================
// UpdateLineQuantity / UpdateVariant
// =====================

func TestCartUsecase_UpdateLineQuantity_ZeroRemovesLine(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)
	ctx := context.Background()

	out, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 2, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)
	key := out.Items[0].Key

	out, err = uc.UpdateLineQuantity(ctx, 1, key, usecase.UpdateCartLineInput{Quantity: 0})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 0)
	assert.Equal(t, int64(0), out.Total)
}

func TestCartUsecase_UpdateVariant_CollisionMergesQuantities(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 2, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)
	out, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: "L", SelectedColor: "white"})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 2)

	// LをMに変更すると既存のM行と合流する
	newSize := "M"
	out, err = uc.UpdateVariant(ctx, 1, usecase.UpdateCartVariantInput{
		ProductID:    p.ID,
		OriginalKey:  "3:L:white",
		SelectedSize: &newSize,
	})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "3:M:white", out.Items[0].Key)
	assert.Equal(t, int64(3), out.Items[0].Quantity)
}

func TestCartUsecase_RemoveLine_UnknownKeyIsNoop(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	uc := usecase.NewCartUsecase(NewCartSnapshotRepoFake(), pRepo)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 1, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)

	out, err := uc.RemoveLine(ctx, 1, "3:S:black")
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

// =====================
// GetCart / ClearCart
// =====================

func TestCartUsecase_GetCart_ReturnsPersistedSnapshot(t *testing.T) {
	snapRepo := NewCartSnapshotRepoFake()
	snapRepo.snaps[1] = cart.Snapshot{Lines: []cart.Line{
		{ProductID: 3, Name: "Tシャツ", SelectedSize: "M", SelectedColor: "white", Quantity: 2, UnitPrice: 2400, Stock: 5},
	}}

	uc := usecase.NewCartUsecase(snapRepo, new(CartProductRepoMock))

	out, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(4800), out.Total)
}

func TestCartUsecase_ClearCart(t *testing.T) {
	p := tshirt()

	pRepo := new(CartProductRepoMock)
	pRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	snapRepo := NewCartSnapshotRepoFake()
	uc := usecase.NewCartUsecase(snapRepo, pRepo)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 1, usecase.AddCartInput{ProductID: p.ID, Quantity: 2, SelectedSize: "M", SelectedColor: "white"})
	assert.NoError(t, err)

	out, err := uc.ClearCart(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, out.Items, 0)
	assert.Equal(t, int64(0), out.Count)
	assert.Len(t, snapRepo.snaps[1].Lines, 0)
}
