package cart

import "fmt"

// サイズ/カラー未選択のときのキー埋め草。
// nilと空文字を同じ明細に畳み込むため、キー生成は必ずここを通す。
const (
	noSize  = "no-size"
	noColor = "no-color"
)

// バリアントキー。カート明細の同一性はこのキーだけで判定する。
// 追加・更新・削除のすべてで同じ関数を使うこと。
func VariantKey(productID int64, size string, color string) string {
	if size == "" {
		size = noSize
	}
	if color == "" {
		color = noColor
	}
	return fmt.Sprintf("%d:%s:%s", productID, size, color)
}
