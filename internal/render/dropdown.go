package render

import (
	"fmt"

	"github.com/hitoshi/dropwatch/internal/listing"
)

// DropdownState は並び順ドロップダウンの開閉状態。
type DropdownState int

const (
	// DropdownClosed は閉じた状態（初期状態）。
	DropdownClosed DropdownState = iota
	// DropdownOpen は選択肢を表示している状態。
	DropdownOpen
)

// Option はドロップダウンの選択肢。
type Option struct {
	Value    listing.SortKey
	Label    string
	Selected bool
}

var optionLabels = map[listing.SortKey]string{
	listing.SortPercentage: "Biggest Drop %",
	listing.SortSavings:    "Biggest Savings",
	listing.SortSite:       "Site Name",
}

// Dropdown は並び順ドロップダウンの状態機械。
//
//	closed --Toggle--> open --Toggle--> closed
//	open   --Close---> closed
//	any    --Select--> closed（選択値を記録）
type Dropdown struct {
	state    DropdownState
	selected listing.SortKey
}

// NewDropdown は閉じた状態でデフォルトの並び順を選択したドロップダウンを生成する。
func NewDropdown() *Dropdown {
	return &Dropdown{
		state:    DropdownClosed,
		selected: listing.DefaultSortKey,
	}
}

// Toggle は開閉を切り替える。
func (d *Dropdown) Toggle() {
	if d.state == DropdownOpen {
		d.state = DropdownClosed
		return
	}
	d.state = DropdownOpen
}

// Close は閉じた状態にする。ウィジェット外の操作に相当する。
func (d *Dropdown) Close() {
	d.state = DropdownClosed
}

// Select は並び順を選択して閉じる。
// 未知の値はエラーを返し、状態を変更しない。
func (d *Dropdown) Select(value string) error {
	key, err := listing.ParseSortKey(value)
	if err != nil {
		return fmt.Errorf("select sort option: %w", err)
	}
	d.selected = key
	d.state = DropdownClosed
	return nil
}

// State は現在の開閉状態を返す。
func (d *Dropdown) State() DropdownState {
	return d.state
}

// IsOpen は開いているかを返す。
func (d *Dropdown) IsOpen() bool {
	return d.state == DropdownOpen
}

// Selected は選択中の並び順を返す。
func (d *Dropdown) Selected() listing.SortKey {
	return d.selected
}

// Label は表示中のラベルを返す。
func (d *Dropdown) Label() string {
	return optionLabels[d.selected]
}

// Options は選択肢を表示順で返す。選択中のものはSelectedがtrue。
func (d *Dropdown) Options() []Option {
	keys := listing.SortKeys()
	opts := make([]Option, len(keys))
	for i, key := range keys {
		opts[i] = Option{
			Value:    key,
			Label:    optionLabels[key],
			Selected: key == d.selected,
		}
	}
	return opts
}
