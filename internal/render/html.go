package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/dropwatch/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// lastUpdatedLayout は「最終更新」の表示形式（dd/mm/yyyy, hh:mm:ss）。
const lastUpdatedLayout = "02/01/2006, 15:04:05"

// Sanitizer は生成済みHTML断片を許可リストで再検査する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// HTMLRenderer はダッシュボードのHTMLを生成する。
// 一覧領域の断片は毎回全体を生成し直し、差分更新は行わない。
type HTMLRenderer struct {
	sanitizer       Sanitizer
	printer         *message.Printer
	currency        string
	refreshInterval time.Duration
}

// NewHTMLRenderer はHTMLRendererの新しいインスタンスを生成する。
// tagは件数の桁区切りに、refreshIntervalはエラーパネルの文言とページの自動再読み込みに使う。
func NewHTMLRenderer(sanitizer Sanitizer, tag language.Tag, currency string, refreshInterval time.Duration) *HTMLRenderer {
	return &HTMLRenderer{
		sanitizer:       sanitizer,
		printer:         message.NewPrinter(tag),
		currency:        currency,
		refreshInterval: refreshInterval,
	}
}

// RenderDrops は値下げ一覧の断片を生成する。0件の場合はプレースホルダを返す。
func (r *HTMLRenderer) RenderDrops(drops []model.Deal) (string, error) {
	return r.execute("drops", newDealViews(drops, r.currency))
}

// RenderError は取得失敗時のエラーパネルを生成する。
func (r *HTMLRenderer) RenderError(fetchErr error) (string, error) {
	msg := "unknown error"
	if fetchErr != nil {
		msg = fetchErr.Error()
	}
	return r.execute("error", struct {
		Message string
		RetryIn string
	}{
		Message: msg,
		RetryIn: FormatRetryIn(r.refreshInterval),
	})
}

// RenderLoading は初回取得前の表示を生成する。
func (r *HTMLRenderer) RenderLoading() (string, error) {
	return r.execute("loading", nil)
}

// RenderContent は種別に応じた一覧領域の断片を生成する。
func (r *HTMLRenderer) RenderContent(kind ContentKind, drops []model.Deal, fetchErr error) (string, error) {
	switch kind {
	case ContentError:
		return r.RenderError(fetchErr)
	case ContentLoading:
		return r.RenderLoading()
	default:
		return r.RenderDrops(drops)
	}
}

// execute はテンプレートを実行し、結果をサニタイズする。
func (r *HTMLRenderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return r.sanitizer.Sanitize(buf.String()), nil
}

// Page はダッシュボードページの入力。
type Page struct {
	Snapshot  *model.Snapshot
	Kind      ContentKind
	Drops     []model.Deal
	FetchErr  error
	Query     string
	SortParam string // リクエストで明示された並び順（未指定なら空）
	Dropdown  *Dropdown
	Countdown string
}

type statsView struct {
	TotalDrops   string
	SitesTracked string
	TopDrop      string
	LastUpdated  string
}

type siteStatView struct {
	Site         string
	Count        string
	MaxDrop      string
	TotalSavings string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
	URL      string
}

type pageView struct {
	Stats          statsView
	SiteStats      []siteStatView
	Countdown      string
	Query          string
	Sort           string
	DropdownOpen   bool
	DropdownLabel  string
	ToggleURL      string
	Options        []optionView
	Content        template.HTML
	ShownCount     int
	RefreshSeconds int
	RefreshURL     string
}

// RenderPage はダッシュボードページ全体を書き出す。
func (r *HTMLRenderer) RenderPage(w io.Writer, p Page) error {
	content, err := r.RenderContent(p.Kind, p.Drops, p.FetchErr)
	if err != nil {
		return err
	}

	dropdown := p.Dropdown
	if dropdown == nil {
		dropdown = NewDropdown()
	}
	sort := string(dropdown.Selected())

	view := pageView{
		Stats:          r.stats(p.Snapshot),
		Countdown:      p.Countdown,
		Query:          p.Query,
		Sort:           sort,
		DropdownOpen:   dropdown.IsOpen(),
		DropdownLabel:  dropdown.Label(),
		ToggleURL:      pageURL(p.Query, sort, true),
		Content:        template.HTML(content), // サニタイズ済み
		RefreshSeconds: int(r.refreshInterval / time.Second),
		RefreshURL:     pageURL(p.Query, p.SortParam, false),
	}
	if p.Kind == ContentDrops {
		view.ShownCount = len(p.Drops)
	}
	for _, opt := range dropdown.Options() {
		view.Options = append(view.Options, optionView{
			Value:    string(opt.Value),
			Label:    opt.Label,
			Selected: opt.Selected,
			URL:      pageURL(p.Query, string(opt.Value), false),
		})
	}
	if p.Snapshot != nil {
		for _, s := range p.Snapshot.SiteStats {
			view.SiteStats = append(view.SiteStats, siteStatView{
				Site:         s.Site,
				Count:        r.printer.Sprintf("%d", s.Count),
				MaxDrop:      FormatPercentage(s.MaxDrop),
				TotalSavings: r.currency + r.printer.Sprintf("%.2f", s.TotalSavings),
			})
		}
	}

	if err := templates.ExecuteTemplate(w, "page", view); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// FormatCount は件数を桁区切り付きで整形する。
func (r *HTMLRenderer) FormatCount(n int) string {
	return r.printer.Sprintf("%d", n)
}

func (r *HTMLRenderer) stats(s *model.Snapshot) statsView {
	if s == nil {
		return statsView{TotalDrops: "-", SitesTracked: "-", TopDrop: "-", LastUpdated: "Loading..."}
	}
	return statsView{
		TotalDrops:   r.FormatCount(s.TotalDrops),
		SitesTracked: r.FormatCount(s.SitesTracked()),
		TopDrop:      FormatPercentage(s.TopDrop()),
		LastUpdated:  "Last updated: " + s.GeneratedAt.Local().Format(lastUpdatedLayout),
	}
}

// pageURL はダッシュボードへのリンクを組み立てる。
func pageURL(query, sort string, toggle bool) string {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if sort != "" {
		v.Set("sort", sort)
	}
	if toggle {
		v.Set("menu", "toggle")
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}
