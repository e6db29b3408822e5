package render

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/dropwatch/internal/model"
)

// TerminalView は端末表示の入力。
type TerminalView struct {
	Snapshot  *model.Snapshot
	Kind      ContentKind
	Drops     []model.Deal
	FetchErr  error
	Countdown string
	RetryIn   string
	Limit     int // 表示件数の上限。0以下なら全件
}

// TerminalRenderer は値下げ一覧を端末向けに整形する。
// 色付けは出力先の端末能力に従い、パイプやファイルへの出力では装飾しない。
type TerminalRenderer struct {
	printer  *message.Printer
	currency string
}

// NewTerminalRenderer はTerminalRendererの新しいインスタンスを生成する。
func NewTerminalRenderer(tag language.Tag, currency string) *TerminalRenderer {
	return &TerminalRenderer{
		printer:  message.NewPrinter(tag),
		currency: currency,
	}
}

type terminalStyles struct {
	header  lipgloss.Style
	tiers   map[model.BadgeTier]lipgloss.Style
	site    lipgloss.Style
	muted   lipgloss.Style
	savings lipgloss.Style
	err     lipgloss.Style
}

func newTerminalStyles(r *lipgloss.Renderer) terminalStyles {
	return terminalStyles{
		header: r.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#764ba2")).
			Padding(0, 1),
		tiers: map[model.BadgeTier]lipgloss.Style{
			model.TierA: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#dc2626")),
			model.TierB: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ea580c")),
			model.TierC: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#16a34a")),
		},
		site:    r.NewStyle().Foreground(lipgloss.Color("#4338ca")),
		muted:   r.NewStyle().Faint(true),
		savings: r.NewStyle().Foreground(lipgloss.Color("#16a34a")),
		err:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#991b1b")),
	}
}

// Render はビューを書き出す。
func (t *TerminalRenderer) Render(w io.Writer, v TerminalView) error {
	styles := newTerminalStyles(lipgloss.NewRenderer(w))

	var b strings.Builder
	b.WriteString(styles.header.Render(t.headerText(v)))
	b.WriteString("\n")

	switch v.Kind {
	case ContentError:
		msg := "unknown error"
		if v.FetchErr != nil {
			msg = v.FetchErr.Error()
		}
		b.WriteString(styles.err.Render("❌ Error Loading Data"))
		b.WriteString("\n")
		b.WriteString(terminalText(msg))
		b.WriteString("\n")
		b.WriteString(styles.muted.Render("Data will be automatically retried in " + v.RetryIn))
		b.WriteString("\n")
	case ContentLoading:
		b.WriteString(styles.muted.Render("Loading price drops..."))
		b.WriteString("\n")
	default:
		t.writeDrops(&b, styles, v)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *TerminalRenderer) headerText(v TerminalView) string {
	if v.Snapshot == nil {
		return fmt.Sprintf("Price Drops | next refresh in %s", v.Countdown)
	}
	s := v.Snapshot
	return fmt.Sprintf("Price Drops: %s | Sites: %d | Top: %s | Last updated: %s | next refresh in %s",
		t.printer.Sprintf("%d", s.TotalDrops),
		s.SitesTracked(),
		FormatPercentage(s.TopDrop()),
		s.GeneratedAt.Local().Format(lastUpdatedLayout),
		v.Countdown,
	)
}

func (t *TerminalRenderer) writeDrops(b *strings.Builder, styles terminalStyles, v TerminalView) {
	if len(v.Drops) == 0 {
		b.WriteString(styles.muted.Render("No price drops found"))
		b.WriteString("\n")
		return
	}

	drops := v.Drops
	if v.Limit > 0 && len(drops) > v.Limit {
		drops = drops[:v.Limit]
	}

	for _, d := range drops {
		dv := newDealView(d, t.currency)
		fmt.Fprintf(b, "%s %s  %s\n",
			dv.Badge,
			styles.tiers[dv.Tier].Render(dv.Percentage),
			styles.site.Render(terminalText(dv.Site)),
		)
		fmt.Fprintf(b, "   %s\n", terminalText(dv.Product))
		if dv.HasPrices {
			fmt.Fprintf(b, "   %s → %s %s\n", dv.OldPrice, dv.NewPrice, styles.savings.Render("(Save "+dv.Savings+")"))
		}
		if dv.URL != "" {
			fmt.Fprintf(b, "   %s\n", styles.muted.Render(terminalText(dv.URL)))
		}
	}

	if len(drops) < len(v.Drops) {
		fmt.Fprintf(b, "%s\n", styles.muted.Render(fmt.Sprintf("... and %d more", len(v.Drops)-len(drops))))
	}
}

// terminalText はフィード由来の文字列からエスケープシーケンスと制御文字を取り除く。
func terminalText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, ansi.Strip(s))
}
