package model

import (
	"github.com/shopspring/decimal"
)

// BadgeTier は値下げ率に基づく表示上の緊急度区分。
type BadgeTier string

const (
	// TierA は値下げ率50%以上。
	TierA BadgeTier = "a"
	// TierB は値下げ率30%以上50%未満。
	TierB BadgeTier = "b"
	// TierC はそれ以外。
	TierC BadgeTier = "c"
)

const (
	tierAThreshold = 50.0
	tierBThreshold = 30.0
)

// Deal はあるサイトにおける1商品の値下げ情報を表す。
// 受信後はイミュータブルとして扱い、節約額やバッジ区分は保持せず都度算出する。
type Deal struct {
	Site       string  `json:"site" validate:"required"`
	Product    string  `json:"product" validate:"required"`
	Percentage float64 `json:"percentage" validate:"gte=0"`
	OldPrice   string  `json:"old_price,omitempty" validate:"omitempty,price"`
	NewPrice   string  `json:"new_price,omitempty" validate:"omitempty,price"`
	URL        string  `json:"url,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// HasPrices は旧価格と新価格の両方が存在するかを返す。
func (d Deal) HasPrices() bool {
	return d.OldPrice != "" && d.NewPrice != ""
}

// HasURL は商品URLが存在するかを返す。
func (d Deal) HasURL() bool {
	return d.URL != ""
}

// Prices は旧価格と新価格を数値として返す。
// 価格のいずれかが欠けている、または数値として解釈できない場合はfalseを返す。
func (d Deal) Prices() (oldPrice, newPrice decimal.Decimal, ok bool) {
	if !d.HasPrices() {
		return decimal.Zero, decimal.Zero, false
	}
	oldPrice, err := decimal.NewFromString(d.OldPrice)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	newPrice, err = decimal.NewFromString(d.NewPrice)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return oldPrice, newPrice, true
}

// Savings は旧価格と新価格の差額を返す。価格ペアが無い場合はfalseを返す。
func (d Deal) Savings() (decimal.Decimal, bool) {
	oldPrice, newPrice, ok := d.Prices()
	if !ok {
		return decimal.Zero, false
	}
	return oldPrice.Sub(newPrice), true
}

// SavingsOrZero は節約額を返す。価格ペアが無い場合は0として扱う。
func (d Deal) SavingsOrZero() decimal.Decimal {
	s, _ := d.Savings()
	return s
}

// Tier は値下げ率からバッジ区分を判定する。
func (d Deal) Tier() BadgeTier {
	switch {
	case d.Percentage >= tierAThreshold:
		return TierA
	case d.Percentage >= tierBThreshold:
		return TierB
	default:
		return TierC
	}
}
