package cart

import "fmt"

// 在庫ゼロの商品を追加しようとした。
type OutOfStockError struct {
	ProductID int64
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %d is out of stock", e.ProductID)
}

// 要求数量（または合算後の数量）が在庫を超えた。
// Availableを持たせて、呼び出し側が残り数を案内できるようにする。
type InsufficientStockError struct {
	ProductID int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// 商品が宣言していないサイズ/カラーを指定した。
type InvalidVariantError struct {
	ProductID int64
	Field     string
	Value     string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("invalid %s %q for product %d", e.Field, e.Value, e.ProductID)
}
