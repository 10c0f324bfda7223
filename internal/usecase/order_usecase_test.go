package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// OrderTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type OrderTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *OrderTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type OrderTxReposMock struct {
	orders        repo.OrderRepository
	orderItems    repo.OrderItemRepository
	cartSnapshots repo.CartSnapshotRepository
	inventory     repo.InventoryRepository
	products      repo.ProductRepository
}

func (r *OrderTxReposMock) Orders() repo.OrderRepository               { return r.orders }
func (r *OrderTxReposMock) OrderItems() repo.OrderItemRepository       { return r.orderItems }
func (r *OrderTxReposMock) CartSnapshots() repo.CartSnapshotRepository { return r.cartSnapshots }
func (r *OrderTxReposMock) Inventory() repo.InventoryRepository        { return r.inventory }
func (r *OrderTxReposMock) Products() repo.ProductRepository           { return r.products }

// =====================
// Repository mocks（Order向け：衝突回避）
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	panic("not used in OrderUsecase PlaceOrder tests")
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in OrderUsecase PlaceOrder tests")
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	panic("not used in OrderUsecase PlaceOrder tests")
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	panic("not used in OrderUsecase PlaceOrder tests")
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type OrderInventoryRepoMock struct{ mock.Mock }

func (m *OrderInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderInventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *OrderInventoryRepoMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderInventoryRepoMock) SetStockWithAdjustment(ctx context.Context, adminUserID int64, productID int64, newStock int64, reason string) error {
	panic("not used in OrderUsecase tests")
}

type OrderAddressRepoMock struct{ mock.Mock }

func (m *OrderAddressRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderAddressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderAddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *OrderAddressRepoMock) Update(ctx context.Context, address model.Address) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderAddressRepoMock) Delete(ctx context.Context, addressID int64) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderAddressRepoMock) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderAddressRepoMock) SetDefault(ctx context.Context, userID, addressID int64) error {
	panic("not used in OrderUsecase tests")
}

// =====================
// PlaceOrder tests
// =====================

func placeOrderFixture() (*usecase.OrderUsecase, *OrderTxManagerMock, *OrderRepoMock, *OrderItemRepoMock, *CartSnapshotRepoFake, *OrderInventoryRepoMock, *CartProductRepoMock, *OrderAddressRepoMock) {
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	cartSnaps := NewCartSnapshotRepoFake()
	inventory := new(OrderInventoryRepoMock)
	products := new(CartProductRepoMock)

	tx := new(OrderTxManagerMock)
	tx.Repos = &OrderTxReposMock{
		orders:        orders,
		orderItems:    orderItems,
		cartSnapshots: cartSnaps,
		inventory:     inventory,
		products:      products,
	}

	addresses := new(OrderAddressRepoMock)
	uc := usecase.NewOrderUsecase(tx, addresses)

	return uc, tx, orders, orderItems, cartSnaps, inventory, products, addresses
}

func TestOrderUsecase_PlaceOrder_Success(t *testing.T) {
	ctx := context.Background()
	uc, tx, orders, orderItems, cartSnaps, inventory, products, addresses := placeOrderFixture()

	addresses.On("FindByID", mock.Anything, int64(10)).Return(model.Address{ID: 10, UserID: 1}, nil)
	tx.On("WithinTx", mock.Anything).Return(nil)

	cartSnaps.snaps[1] = cart.Snapshot{Lines: []cart.Line{
		{ProductID: 3, Name: "Tシャツ", SelectedSize: "M", SelectedColor: "white", Quantity: 2, UnitPrice: 2400, Stock: 5},
		{ProductID: 7, Name: "マグカップ", Quantity: 1, UnitPrice: 1500, Stock: 9},
	}}

	orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3, Name: "Tシャツ", IsActive: true}, nil)
	products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{ID: 7, Name: "マグカップ", IsActive: true}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(3), int64(2)).Return(true, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(7), int64(1)).Return(true, nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(100), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(100), mock.Anything).Return(nil)

	out, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 10, IdempotencyKey: "key-1"})
	assert.NoError(t, err)
	assert.Equal(t, int64(100), out.ID)
	assert.Equal(t, "PENDING", out.Status)
	// 2400*2 + 1500
	assert.Equal(t, int64(6300), out.TotalPrice)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, "M", out.Items[0].SelectedSize)
	assert.Equal(t, "white", out.Items[0].SelectedColor)

	// カートは空になる
	assert.Len(t, cartSnaps.snaps[1].Lines, 0)

	inventory.AssertExpectations(t)
	orderItems.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_SameKeyReturnsExistingOrder(t *testing.T) {
	ctx := context.Background()
	uc, tx, orders, orderItems, cartSnaps, inventory, _, addresses := placeOrderFixture()

	addresses.On("FindByID", mock.Anything, int64(10)).Return(model.Address{ID: 10, UserID: 1}, nil)
	tx.On("WithinTx", mock.Anything).Return(nil)

	cartSnaps.snaps[1] = cart.Snapshot{Lines: []cart.Line{
		{ProductID: 3, Quantity: 1, UnitPrice: 2400},
	}}

	existing := model.Order{ID: 55, UserID: 1, Status: model.OrderStatusPending, TotalPrice: 2400}
	orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(existing, true, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(55)).Return([]model.OrderItem{}, nil)

	out, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 10, IdempotencyKey: "key-1"})
	assert.NoError(t, err)
	assert.Equal(t, int64(55), out.ID)

	// 在庫は触らない、カートもそのまま
	inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, cartSnaps.snaps[1].Lines, 1)
}

func TestOrderUsecase_PlaceOrder_OutOfStock(t *testing.T) {
	ctx := context.Background()
	uc, tx, orders, _, cartSnaps, inventory, products, addresses := placeOrderFixture()

	addresses.On("FindByID", mock.Anything, int64(10)).Return(model.Address{ID: 10, UserID: 1}, nil)
	tx.On("WithinTx", mock.Anything).Return(nil)

	cartSnaps.snaps[1] = cart.Snapshot{Lines: []cart.Line{
		{ProductID: 3, Quantity: 5, UnitPrice: 2400, Stock: 5},
	}}

	orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)
	products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3, IsActive: true}, nil)
	// カートのStockスナップショットは古い。実在庫は足りない
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(3), int64(5)).Return(false, nil)

	_, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 10, IdempotencyKey: "key-1"})
	assertCartErrContains(t, err, "out of stock")
}

func TestOrderUsecase_PlaceOrder_EmptyCart(t *testing.T) {
	ctx := context.Background()
	uc, tx, orders, _, _, _, _, addresses := placeOrderFixture()

	addresses.On("FindByID", mock.Anything, int64(10)).Return(model.Address{ID: 10, UserID: 1}, nil)
	tx.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil)

	_, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 10, IdempotencyKey: "key-1"})
	assertCartErrContains(t, err, "cart empty")
}

func TestOrderUsecase_PlaceOrder_AddressOfAnotherUser(t *testing.T) {
	ctx := context.Background()
	uc, _, _, _, _, _, _, addresses := placeOrderFixture()

	addresses.On("FindByID", mock.Anything, int64(10)).Return(model.Address{ID: 10, UserID: 2}, nil)

	_, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 10, IdempotencyKey: "key-1"})
	assertCartErrContains(t, err, "forbidden")
}

func TestOrderUsecase_PlaceOrder_CreateConflictReturnsExisting(t *testing.T) {
	ctx := context.Background()
	uc, tx, orders, orderItems, cartSnaps, inventory, products, addresses := placeOrderFixture()

	addresses.On("FindByID", mock.Anything, int64(10)).Return(model.Address{ID: 10, UserID: 1}, nil)
	tx.On("WithinTx", mock.Anything).Return(nil)

	cartSnaps.snaps[1] = cart.Snapshot{Lines: []cart.Line{
		{ProductID: 3, Quantity: 1, UnitPrice: 2400, Stock: 5},
	}}

	// 1回目の検索では無し、Createでunique衝突、再検索で既存が見つかる
	winner := model.Order{ID: 77, UserID: 1, Status: model.OrderStatusPending, TotalPrice: 2400}
	orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(model.Order{}, false, nil).Once()
	products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3, IsActive: true}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(3), int64(1)).Return(true, nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), repo.ErrConflict)
	orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(winner, true, nil).Once()
	orderItems.On("ListByOrderID", mock.Anything, int64(77)).Return([]model.OrderItem{}, nil)

	out, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 10, IdempotencyKey: "key-1"})
	assert.NoError(t, err)
	assert.Equal(t, int64(77), out.ID)
}
