package cart

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	"storefront/internal/pricing"
)

// カート1明細。1つの購入可能なバリアント（商品×サイズ×カラー）に対応する。
type Line struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	SelectedSize  string `json:"selected_size"`
	SelectedColor string `json:"selected_color"`
	Quantity      int64  `json:"quantity"`

	//追加時点の実効価格（割引適用後）。後から商品価格が変わっても追従しない。
	UnitPrice int64 `json:"unit_price"`

	//追加時点の在庫。数量変更時のガードはこの値を見る。
	Stock int64 `json:"stock"`
}

func (l Line) Key() string {
	return VariantKey(l.ProductID, l.SelectedSize, l.SelectedColor)
}

// 永続化の単位。カートは常に丸ごと保存・丸ごと復元する。
type Snapshot struct {
	Lines []Line `json:"lines"`
}

type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// バリアント編集の差分。nilのフィールドは変更しない。
type VariantUpdate struct {
	SelectedSize  *string
	SelectedColor *string
	Quantity      *int64
}

// カート本体。明細は挿入順を保ち、同一バリアントキーの明細は常に1つ。
// すべての変更操作は「検証→丸ごと保存→メモリ反映→通知」の順で行い、
// 途中で失敗したら状態は一切変わらない。
type Store struct {
	persister Persister
	lines     []Line
	listeners []func()
}

// 保存済みスナップショットから復元してStoreを作る。
func NewStore(ctx context.Context, p Persister) (*Store, error) {
	snap, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{persister: p, lines: snap.Lines}, nil
}

// 変更通知リスナーを登録する。成功した変更の後に呼ばれる。
func (s *Store) OnChange(fn func()) {
	s.listeners = append(s.listeners, fn)
}

// 明細のコピーを挿入順で返す。
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// 合計金額（単価スナップショット×数量の総和）。
func (s *Store) Total() int64 {
	var total int64
	for _, l := range s.lines {
		total += l.UnitPrice * l.Quantity
	}
	return total
}

// 合計点数（明細数ではなく数量の総和。バッジ表示用）。
func (s *Store) Count() int64 {
	var count int64
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

// カートに追加。同一バリアントは数量加算で、明細は増やさない。
func (s *Store) AddLine(ctx context.Context, p model.Product, qty int64, size string, color string) error {
	if qty < 1 {
		return errors.New("invalid quantity")
	}
	if p.Stock < 1 {
		return &OutOfStockError{ProductID: p.ID}
	}
	if size != "" && !p.Sizes.Contains(size) {
		return &InvalidVariantError{ProductID: p.ID, Field: "size", Value: size}
	}
	if color != "" && !p.Colors.Contains(color) {
		return &InvalidVariantError{ProductID: p.ID, Field: "color", Value: color}
	}

	key := VariantKey(p.ID, size, color)
	next := s.cloneLines()

	if i := indexByKey(next, key); i >= 0 {
		newTotal := next[i].Quantity + qty
		if newTotal > p.Stock {
			return &InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: newTotal}
		}
		//単価スナップショットは最初の追加時点のまま。在庫は今の値で取り直す。
		next[i].Quantity = newTotal
		next[i].Stock = p.Stock
		return s.commit(ctx, next)
	}

	if qty > p.Stock {
		return &InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: qty}
	}

	next = append(next, Line{
		ProductID:     p.ID,
		Name:          p.Name,
		SelectedSize:  size,
		SelectedColor: color,
		Quantity:      qty,
		UnitPrice:     pricing.EffectivePrice(p.Price, p.DiscountPercent),
		Stock:         p.Stock,
	})
	return s.commit(ctx, next)
}

// 数量変更。0以下は削除扱い（数量0の明細は存在させない）。
// 在庫ガードは明細が持つ在庫スナップショットで判定する。
func (s *Store) UpdateQuantity(ctx context.Context, key string, qty int64) error {
	i := indexByKey(s.lines, key)
	if i < 0 {
		//存在しないキーはエラーにしない（UIの二重イベント対策）
		return nil
	}

	if qty <= 0 {
		return s.RemoveLine(ctx, key)
	}

	if qty > s.lines[i].Stock {
		return &InsufficientStockError{ProductID: s.lines[i].ProductID, Available: s.lines[i].Stock, Requested: qty}
	}

	next := s.cloneLines()
	next[i].Quantity = qty
	return s.commit(ctx, next)
}

// バリアント編集。編集後のキーが別の既存明細と衝突したら、
// 数量を衝突先に合算して元の明細を消す（同一キーの明細を2つ作らない）。
func (s *Store) UpdateVariant(ctx context.Context, productID int64, upd VariantUpdate, originalKey string) error {
	//対象を解決。originalKeyがあればそれを優先（同一商品の複数明細を区別するため）
	orig := -1
	if originalKey != "" {
		orig = indexByKey(s.lines, originalKey)
	} else {
		for i, l := range s.lines {
			if l.ProductID == productID {
				orig = i
				break
			}
		}
	}
	if orig < 0 {
		return nil
	}

	size := s.lines[orig].SelectedSize
	if upd.SelectedSize != nil {
		size = *upd.SelectedSize
	}
	color := s.lines[orig].SelectedColor
	if upd.SelectedColor != nil {
		color = *upd.SelectedColor
	}
	qty := s.lines[orig].Quantity
	if upd.Quantity != nil {
		qty = *upd.Quantity
	}

	if qty <= 0 {
		return s.RemoveLine(ctx, s.lines[orig].Key())
	}

	newKey := VariantKey(productID, size, color)

	//衝突先（自分以外で同じキーを持つ明細）
	other := indexByKey(s.lines, newKey)
	if other >= 0 && other != orig {
		combined := s.lines[other].Quantity + qty
		if combined > s.lines[other].Stock {
			return &InsufficientStockError{ProductID: productID, Available: s.lines[other].Stock, Requested: combined}
		}

		next := s.cloneLines()
		next[other].Quantity = combined
		next = append(next[:orig], next[orig+1:]...)
		return s.commit(ctx, next)
	}

	//衝突なしはその場で書き換え
	if qty > s.lines[orig].Stock {
		return &InsufficientStockError{ProductID: productID, Available: s.lines[orig].Stock, Requested: qty}
	}

	next := s.cloneLines()
	next[orig].SelectedSize = size
	next[orig].SelectedColor = color
	next[orig].Quantity = qty
	return s.commit(ctx, next)
}

// 明細削除。無ければ何もしない。
func (s *Store) RemoveLine(ctx context.Context, key string) error {
	i := indexByKey(s.lines, key)
	if i < 0 {
		return nil
	}

	next := s.cloneLines()
	next = append(next[:i], next[i+1:]...)
	return s.commit(ctx, next)
}

// カートを空にする（注文確定後・明示的なクリア）。
func (s *Store) Clear(ctx context.Context) error {
	return s.commit(ctx, []Line{})
}

// 保存が成功したときだけメモリへ反映し、リスナーへ通知する。
func (s *Store) commit(ctx context.Context, next []Line) error {
	if err := s.persister.Save(ctx, Snapshot{Lines: next}); err != nil {
		return err
	}
	s.lines = next
	for _, fn := range s.listeners {
		fn()
	}
	return nil
}

func (s *Store) cloneLines() []Line {
	next := make([]Line, len(s.lines))
	copy(next, s.lines)
	return next
}

func indexByKey(lines []Line, key string) int {
	for i, l := range lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}
