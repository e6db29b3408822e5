// Package listing は値下げ一覧の並び替えと検索を提供する。
// 表示用の一覧は常にスナップショットのコピーから導出し、元のスライスは変更しない。
package listing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hitoshi/dropwatch/internal/model"
)

// SortKey は一覧の並び順を表す。
type SortKey string

const (
	// SortPercentage は値下げ率の降順。デフォルト。
	SortPercentage SortKey = "percentage"
	// SortSavings は節約額の降順。価格ペアが無いものは節約額0として扱う。
	SortSavings SortKey = "savings"
	// SortSite はサイト名の昇順（ロケールに従う）。
	SortSite SortKey = "site"
)

// DefaultSortKey は初期表示時の並び順。
const DefaultSortKey = SortPercentage

// ErrUnknownSortKey は未知のソートキーが指定されたことを表す。
var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKeys は有効なソートキーを表示順で返す。
func SortKeys() []SortKey {
	return []SortKey{SortPercentage, SortSavings, SortSite}
}

// ParseSortKey は文字列をSortKeyに変換する。空文字はデフォルトとして扱う。
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.TrimSpace(s)); key {
	case "":
		return DefaultSortKey, nil
	case SortPercentage, SortSavings, SortSite:
		return key, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

// Query は一覧に適用する検索語と並び順の組。
type Query struct {
	Search string
	Sort   SortKey
}

// Sorter はロケールを考慮して一覧を並び替える。
type Sorter struct {
	tag language.Tag
}

// NewSorter は指定ロケールのSorterを生成する。
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{tag: tag}
}

// Sort は一覧のコピーを指定キーで安定ソートして返す。
func (s *Sorter) Sort(drops []model.Deal, key SortKey) []model.Deal {
	sorted := slices.Clone(drops)

	switch key {
	case SortSavings:
		slices.SortStableFunc(sorted, func(a, b model.Deal) int {
			return b.SavingsOrZero().Cmp(a.SavingsOrZero())
		})
	case SortSite:
		// Collatorは並行利用できないため呼び出しごとに生成する
		col := collate.New(s.tag)
		slices.SortStableFunc(sorted, func(a, b model.Deal) int {
			return col.CompareString(a.Site, b.Site)
		})
	default:
		slices.SortStableFunc(sorted, func(a, b model.Deal) int {
			switch {
			case a.Percentage > b.Percentage:
				return -1
			case a.Percentage < b.Percentage:
				return 1
			default:
				return 0
			}
		})
	}

	return sorted
}

// Project は検索で絞り込んだ後に並び替えた一覧を返す。
func (s *Sorter) Project(drops []model.Deal, q Query) []model.Deal {
	return s.Sort(Filter(drops, q.Search), q.Sort)
}

// Filter は商品名またはサイト名に検索語を含む値下げ情報を返す。
// 大文字小文字は区別しない。空の検索語は全件を返す。
func Filter(drops []model.Deal, query string) []model.Deal {
	needle := strings.ToLower(query)
	if needle == "" {
		return slices.Clone(drops)
	}

	matched := make([]model.Deal, 0, len(drops))
	for _, d := range drops {
		if strings.Contains(strings.ToLower(d.Product), needle) ||
			strings.Contains(strings.ToLower(d.Site), needle) {
			matched = append(matched, d)
		}
	}
	return matched
}
