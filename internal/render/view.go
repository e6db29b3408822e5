// Package render は値下げ一覧の表示を提供する。
//
// HTMLRenderer はダッシュボードのHTML（一覧断片とページ全体）を生成し、
// TerminalRenderer は watch コマンド用に同じ一覧を端末向けに整形する。
// どちらも一覧の順序は呼び出し側から受け取り、並び替えや絞り込みは行わない。
package render

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/dropwatch/internal/model"
)

// ContentKind は一覧領域に表示する内容の種別。
type ContentKind int

const (
	// ContentLoading は初回取得前の読み込み中表示。
	ContentLoading ContentKind = iota
	// ContentError は取得失敗のエラーパネル。
	ContentError
	// ContentDrops は値下げ一覧（0件ならプレースホルダ）。
	ContentDrops
)

// ChooseContent は状態から一覧領域の表示内容を決める。
// 直近の取得が失敗している間はエラーパネルを表示する。
// ただし保持中のスナップショットがあり、利用者が検索・並び替えを操作した場合は一覧を表示する。
func ChooseContent(hasSnapshot, failed, userInteracted bool) ContentKind {
	switch {
	case failed && !(hasSnapshot && userInteracted):
		return ContentError
	case !hasSnapshot:
		return ContentLoading
	default:
		return ContentDrops
	}
}

// badges はバッジ区分ごとの絵文字。
var badges = map[model.BadgeTier]string{
	model.TierA: "🔥",
	model.TierB: "📉",
	model.TierC: "💰",
}

// Badge はバッジ区分の絵文字を返す。
func Badge(tier model.BadgeTier) string {
	return badges[tier]
}

// FormatPercentage は値下げ率を小数1桁で整形する。
func FormatPercentage(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatMoney は金額を通貨記号付きの小数2桁で整形する。
func FormatMoney(currency string, amount decimal.Decimal) string {
	return currency + amount.StringFixed(2)
}

// FormatRetryIn はリトライまでの間隔を "5 minutes" のような文言にする。
func FormatRetryIn(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return plural(int(d/time.Minute), "minute")
	}
	return plural(int(d/time.Second), "second")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// dealView はテンプレートに渡す1件分の表示値。
type dealView struct {
	Tier       model.BadgeTier
	Badge      string
	Percentage string
	Site       string
	Product    string
	HasPrices  bool
	OldPrice   string
	NewPrice   string
	Savings    string
	URL        string
}

func newDealView(d model.Deal, currency string) dealView {
	v := dealView{
		Tier:       d.Tier(),
		Badge:      Badge(d.Tier()),
		Percentage: FormatPercentage(d.Percentage),
		Site:       d.Site,
		Product:    d.Product,
		URL:        d.URL,
	}
	if oldPrice, newPrice, ok := d.Prices(); ok {
		v.HasPrices = true
		v.OldPrice = FormatMoney(currency, oldPrice)
		v.NewPrice = FormatMoney(currency, newPrice)
		v.Savings = FormatMoney(currency, oldPrice.Sub(newPrice))
	}
	return v
}

func newDealViews(drops []model.Deal, currency string) []dealView {
	views := make([]dealView, len(drops))
	for i, d := range drops {
		views[i] = newDealView(d, currency)
	}
	return views
}
