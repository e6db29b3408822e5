package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/hitoshi/dropwatch/internal/model"
	"github.com/hitoshi/dropwatch/internal/security"
)

func newTestRenderer() *HTMLRenderer {
	return NewHTMLRenderer(security.NewMarkupSanitizer(), language.BritishEnglish, "£", 5*time.Minute)
}

func parseFragment(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestRenderDrops_Empty(t *testing.T) {
	r := newTestRenderer()

	for _, drops := range [][]model.Deal{nil, {}} {
		html, err := r.RenderDrops(drops)
		if err != nil {
			t.Fatalf("RenderDrops() returned error: %v", err)
		}
		doc := parseFragment(t, html)
		if doc.Find(".drop-item").Length() != 0 {
			t.Error("empty list should not render items")
		}
		if got := strings.TrimSpace(doc.Find("p.loading").Text()); got != "No price drops found" {
			t.Errorf("placeholder = %q, want %q", got, "No price drops found")
		}
	}
}

// TestRenderDrops_ShoeExample は代表的な1件の表示内容を検証する。
func TestRenderDrops_ShoeExample(t *testing.T) {
	r := newTestRenderer()
	html, err := r.RenderDrops([]model.Deal{{
		Site:       "A",
		Product:    "Shoe",
		Percentage: 55,
		OldPrice:   "100.00",
		NewPrice:   "40.00",
		URL:        "https://shop.example.com/shoe",
	}})
	if err != nil {
		t.Fatalf("RenderDrops() returned error: %v", err)
	}

	doc := parseFragment(t, html)
	items := doc.Find(".drop-item")
	if items.Length() != 1 {
		t.Fatalf("items = %d, want 1", items.Length())
	}

	badge := items.Find(".drop-badge")
	if !badge.HasClass("tier-a") {
		t.Errorf("badge class = %q, want tier-a", badge.AttrOr("class", ""))
	}
	if badge.Text() != "🔥" {
		t.Errorf("badge = %q, want 🔥", badge.Text())
	}
	if got := items.Find(".drop-percentage").Text(); got != "55.0%" {
		t.Errorf("percentage = %q, want 55.0%%", got)
	}
	if got := items.Find(".drop-site").Text(); got != "A" {
		t.Errorf("site = %q, want A", got)
	}
	if got := items.Find(".drop-product").Text(); got != "Shoe" {
		t.Errorf("product = %q, want Shoe", got)
	}

	price := items.Find(".drop-price")
	if price.Find(".old").Text() != "£100.00" || price.Find(".new").Text() != "£40.00" {
		t.Errorf("prices = %q / %q", price.Find(".old").Text(), price.Find(".new").Text())
	}
	if !strings.Contains(price.Text(), "(Save £60.00)") {
		t.Errorf("price line = %q, want to contain (Save £60.00)", price.Text())
	}

	link := items.Find("a.drop-link")
	if link.AttrOr("href", "") != "https://shop.example.com/shoe" {
		t.Errorf("href = %q", link.AttrOr("href", ""))
	}
	if link.AttrOr("target", "") != "_blank" {
		t.Errorf("target = %q, want _blank", link.AttrOr("target", ""))
	}
	rel := link.AttrOr("rel", "")
	if !strings.Contains(rel, "noopener") || !strings.Contains(rel, "noreferrer") {
		t.Errorf("rel = %q, want noopener noreferrer", rel)
	}
	if !strings.Contains(link.Text(), "View Product →") {
		t.Errorf("link text = %q", link.Text())
	}
}

func TestRenderDrops_BadgeTiers(t *testing.T) {
	r := newTestRenderer()

	tests := []struct {
		percentage float64
		wantClass  string
		wantBadge  string
	}{
		{100, "tier-a", "🔥"},
		{50, "tier-a", "🔥"},
		{49.9, "tier-b", "📉"},
		{30, "tier-b", "📉"},
		{29.99, "tier-c", "💰"},
		{0, "tier-c", "💰"},
	}

	for _, tt := range tests {
		html, err := r.RenderDrops([]model.Deal{{Site: "s", Product: "p", Percentage: tt.percentage}})
		if err != nil {
			t.Fatalf("RenderDrops() returned error: %v", err)
		}
		badge := parseFragment(t, html).Find(".drop-badge")
		if !badge.HasClass(tt.wantClass) || badge.Text() != tt.wantBadge {
			t.Errorf("percentage %v: class=%q badge=%q, want %s %s",
				tt.percentage, badge.AttrOr("class", ""), badge.Text(), tt.wantClass, tt.wantBadge)
		}
	}
}

// TestRenderDrops_OptionalFields は価格やURLが欠けた場合に該当行を出さないことを検証する。
func TestRenderDrops_OptionalFields(t *testing.T) {
	r := newTestRenderer()
	html, err := r.RenderDrops([]model.Deal{
		{Site: "s", Product: "no prices", Percentage: 10},
		{Site: "s", Product: "old only", Percentage: 10, OldPrice: "5.00"},
	})
	if err != nil {
		t.Fatalf("RenderDrops() returned error: %v", err)
	}

	doc := parseFragment(t, html)
	if doc.Find(".drop-item").Length() != 2 {
		t.Fatalf("items = %d, want 2", doc.Find(".drop-item").Length())
	}
	if doc.Find(".drop-price").Length() != 0 {
		t.Error("price line must be omitted without both prices")
	}
	if doc.Find("a").Length() != 0 {
		t.Error("link must be omitted without url")
	}
	if strings.Contains(html, "Save") {
		t.Error("savings must not be rendered")
	}
}

// TestRenderDrops_EscapesFreeText は商品名・サイト名がエスケープされることを検証する。
func TestRenderDrops_EscapesFreeText(t *testing.T) {
	r := newTestRenderer()
	product := `<script>alert("x")</script> Tom & Jerry's`
	site := `<img src=x onerror=alert(1)>`

	html, err := r.RenderDrops([]model.Deal{{Site: site, Product: product, Percentage: 40}})
	if err != nil {
		t.Fatalf("RenderDrops() returned error: %v", err)
	}

	if strings.Contains(html, "<script") || strings.Contains(html, "<img") {
		t.Errorf("free text was not escaped: %s", html)
	}

	doc := parseFragment(t, html)
	if got := doc.Find(".drop-product").Text(); got != product {
		t.Errorf("product text = %q, want %q", got, product)
	}
	if got := doc.Find(".drop-site").Text(); got != site {
		t.Errorf("site text = %q, want %q", got, site)
	}
}

func TestRenderDrops_UnsafeURLIsDropped(t *testing.T) {
	r := newTestRenderer()
	html, err := r.RenderDrops([]model.Deal{{Site: "s", Product: "p", Percentage: 40, URL: "javascript:alert(1)"}})
	if err != nil {
		t.Fatalf("RenderDrops() returned error: %v", err)
	}
	if strings.Contains(html, "javascript:") {
		t.Errorf("unsafe url survived: %s", html)
	}
}

func TestRenderDrops_PreservesOrder(t *testing.T) {
	r := newTestRenderer()
	html, err := r.RenderDrops([]model.Deal{
		{Site: "s", Product: "first", Percentage: 10},
		{Site: "s", Product: "second", Percentage: 90},
		{Site: "s", Product: "third", Percentage: 50},
	})
	if err != nil {
		t.Fatalf("RenderDrops() returned error: %v", err)
	}

	var got []string
	parseFragment(t, html).Find(".drop-product").Each(func(_ int, s *goquery.Selection) {
		got = append(got, s.Text())
	})
	if strings.Join(got, ",") != "first,second,third" {
		t.Errorf("order = %v", got)
	}
}

// TestRenderError_HTTP500 はHTTP 500のエラーパネルを検証する。
func TestRenderError_HTTP500(t *testing.T) {
	r := newTestRenderer()
	html, err := r.RenderError(&model.HTTPError{StatusCode: 500})
	if err != nil {
		t.Fatalf("RenderError() returned error: %v", err)
	}

	doc := parseFragment(t, html)
	panel := doc.Find("div.error")
	if panel.Length() != 1 {
		t.Fatalf("error panel not found: %s", html)
	}
	if got := panel.Find("h2").Text(); !strings.Contains(got, "Error Loading Data") {
		t.Errorf("heading = %q", got)
	}
	if !strings.Contains(panel.Text(), "HTTP error! status: 500") {
		t.Errorf("panel = %q, want to contain status 500", panel.Text())
	}
	if !strings.Contains(panel.Text(), "Data will be automatically retried in 5 minutes") {
		t.Errorf("panel = %q, want retry notice", panel.Text())
	}
}

func TestRenderError_EscapesMessage(t *testing.T) {
	r := newTestRenderer()
	html, err := r.RenderError(&model.ParseError{Err: errMessage("<b>bad</b>")})
	if err != nil {
		t.Fatalf("RenderError() returned error: %v", err)
	}
	if strings.Contains(html, "<b>") {
		t.Errorf("message must be escaped: %s", html)
	}
}

type errMessage string

func (e errMessage) Error() string { return string(e) }

func TestFormatRetryIn(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Minute, "5 minutes"},
		{time.Minute, "1 minute"},
		{90 * time.Second, "90 seconds"},
		{time.Second, "1 second"},
	}
	for _, tt := range tests {
		if got := FormatRetryIn(tt.d); got != tt.want {
			t.Errorf("FormatRetryIn(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChooseContent(t *testing.T) {
	tests := []struct {
		name                                string
		hasSnapshot, failed, userInteracted bool
		want                                ContentKind
	}{
		{"初回取得前", false, false, false, ContentLoading},
		{"初回取得失敗", false, true, false, ContentError},
		{"初回取得失敗で検索", false, true, true, ContentError},
		{"成功", true, false, false, ContentDrops},
		{"成功後の失敗", true, true, false, ContentError},
		{"成功後の失敗で検索", true, true, true, ContentDrops},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseContent(tt.hasSnapshot, tt.failed, tt.userInteracted); got != tt.want {
				t.Errorf("ChooseContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testPageSnapshot() *model.Snapshot {
	return &model.Snapshot{
		GeneratedAt: model.Timestamp{Time: time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)},
		TotalDrops:  1234,
		SiteStats: []model.SiteStat{
			{Site: "argos", Count: 2, MaxDrop: 55, TotalSavings: 1060.5},
			{Site: "boots", Count: 1, MaxDrop: 12.5, TotalSavings: 2},
		},
		Drops: []model.Deal{
			{Site: "argos", Product: "Shoe", Percentage: 55, OldPrice: "100.00", NewPrice: "40.00"},
			{Site: "boots", Product: "Brush", Percentage: 12.5},
		},
	}
}

func TestRenderPage_Stats(t *testing.T) {
	r := newTestRenderer()
	snap := testPageSnapshot()

	var buf bytes.Buffer
	err := r.RenderPage(&buf, Page{
		Snapshot:  snap,
		Kind:      ContentDrops,
		Drops:     snap.Drops,
		Dropdown:  NewDropdown(),
		Countdown: "4:59",
	})
	if err != nil {
		t.Fatalf("RenderPage() returned error: %v", err)
	}

	doc := parseFragment(t, buf.String())
	checks := map[string]string{
		"#totalDrops":   "1,234",
		"#sitesTracked": "2",
		"#topDrop":      "55.0%",
		"#countdown":    "4:59",
		"#lastUpdate":   "Last updated: 01/05/2024, 12:34:56",
	}
	for sel, want := range checks {
		if got := strings.TrimSpace(doc.Find(sel).Text()); got != want {
			t.Errorf("%s = %q, want %q", sel, got, want)
		}
	}

	if doc.Find("#priceDrops .drop-item").Length() != 2 {
		t.Errorf("items = %d, want 2", doc.Find("#priceDrops .drop-item").Length())
	}

	rows := doc.Find("table.site-stats tbody tr")
	if rows.Length() != 2 {
		t.Fatalf("site stats rows = %d, want 2", rows.Length())
	}
	if got := rows.First().Find("td").Last().Text(); got != "£1,060.50" {
		t.Errorf("total savings = %q, want £1,060.50", got)
	}

	refresh := doc.Find(`meta[http-equiv="refresh"]`).AttrOr("content", "")
	if !strings.HasPrefix(refresh, "300;") {
		t.Errorf("meta refresh = %q", refresh)
	}
	if doc.Find("script").Length() != 0 {
		t.Error("page must not contain scripts")
	}
}

func TestRenderPage_NoSnapshot(t *testing.T) {
	r := newTestRenderer()

	var buf bytes.Buffer
	if err := r.RenderPage(&buf, Page{Kind: ContentLoading, Countdown: "5:00"}); err != nil {
		t.Fatalf("RenderPage() returned error: %v", err)
	}

	doc := parseFragment(t, buf.String())
	if got := doc.Find("#totalDrops").Text(); got != "-" {
		t.Errorf("totalDrops = %q, want -", got)
	}
	if !strings.Contains(doc.Find("#priceDrops").Text(), "Loading price drops...") {
		t.Error("loading placeholder missing")
	}
	if doc.Find("table.site-stats").Length() != 0 {
		t.Error("site stats must be omitted without snapshot")
	}
}

func TestRenderPage_ErrorPanelKeepsStats(t *testing.T) {
	r := newTestRenderer()
	snap := testPageSnapshot()

	var buf bytes.Buffer
	err := r.RenderPage(&buf, Page{
		Snapshot: snap,
		Kind:     ContentError,
		FetchErr: &model.HTTPError{StatusCode: 500},
	})
	if err != nil {
		t.Fatalf("RenderPage() returned error: %v", err)
	}

	doc := parseFragment(t, buf.String())
	if !strings.Contains(doc.Find("#priceDrops .error").Text(), "500") {
		t.Error("error panel should mention 500")
	}
	if doc.Find("#priceDrops .drop-item").Length() != 0 {
		t.Error("error panel replaces the list")
	}
	if got := doc.Find("#totalDrops").Text(); got != "1,234" {
		t.Errorf("totalDrops = %q, want 1,234", got)
	}
}

// TestRenderPage_Dropdown はドロップダウンの開閉とリンクを検証する。
func TestRenderPage_Dropdown(t *testing.T) {
	r := newTestRenderer()
	snap := testPageSnapshot()

	closed := NewDropdown()
	if err := closed.Select("savings"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := r.RenderPage(&buf, Page{Snapshot: snap, Kind: ContentDrops, Drops: snap.Drops, Query: "sh oe", Dropdown: closed}); err != nil {
		t.Fatalf("RenderPage() returned error: %v", err)
	}
	doc := parseFragment(t, buf.String())

	sel := doc.Find("#sortSelect")
	if sel.HasClass("active") {
		t.Error("closed dropdown must not be active")
	}
	if got := sel.Find(".select-trigger span").Text(); got != "Biggest Savings" {
		t.Errorf("label = %q, want Biggest Savings", got)
	}
	if sel.Find(".option").Length() != 0 {
		t.Error("closed dropdown must not list options")
	}
	if got := sel.Find(".select-trigger").AttrOr("href", ""); got != "/?menu=toggle&q=sh+oe&sort=savings" {
		t.Errorf("toggle href = %q", got)
	}
	if got := doc.Find(`input[name="q"]`).AttrOr("value", ""); got != "sh oe" {
		t.Errorf("search value = %q", got)
	}

	open := NewDropdown()
	open.Toggle()
	buf.Reset()
	if err := r.RenderPage(&buf, Page{Snapshot: snap, Kind: ContentDrops, Drops: snap.Drops, Dropdown: open}); err != nil {
		t.Fatalf("RenderPage() returned error: %v", err)
	}
	doc = parseFragment(t, buf.String())

	sel = doc.Find("#sortSelect")
	if !sel.HasClass("active") {
		t.Error("open dropdown should be active")
	}
	opts := sel.Find(".option")
	if opts.Length() != 3 {
		t.Fatalf("options = %d, want 3", opts.Length())
	}
	if !opts.First().HasClass("selected") || opts.First().AttrOr("data-value", "") != "percentage" {
		t.Error("default option should be selected")
	}
	if got := opts.Last().AttrOr("href", ""); got != "/?sort=site" {
		t.Errorf("site option href = %q, want /?sort=site", got)
	}
}
