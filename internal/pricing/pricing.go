package pricing

// 価格は最小通貨単位の整数（円）で扱う。

// 割引適用後の単価を返す。
// discountPercentが0以下なら元の価格をそのまま返す（割引なし商品は触らない）。
// 100以上なら0（マイナス価格は作らない）。
func EffectivePrice(price int64, discountPercent int64) int64 {
	if discountPercent <= 0 {
		return price
	}

	discounted := price - price*discountPercent/100
	if discounted < 0 {
		return 0
	}
	return discounted
}

// 割引が有効かどうか
func HasDiscount(discountPercent int64) bool {
	return discountPercent > 0
}
