package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/dropwatch/internal/config"
	"github.com/hitoshi/dropwatch/internal/listing"
	"github.com/hitoshi/dropwatch/internal/model"
	"github.com/hitoshi/dropwatch/internal/render"
)

// watchLimit はwatchコマンドで一度に表示する件数。
const watchLimit = 20

// runWatch は端末にダッシュボードを表示し続ける。
// 取得完了ごとに再描画し、端末への出力ではカウントダウンのために毎秒再描画する。
func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	c := newComponents(cfg, logger)
	term := render.NewTerminalRenderer(cfg.Locale, cfg.CurrencySymbol)
	screen := termenv.NewOutput(out)
	interactive := screen.Profile != termenv.Ascii

	redraw := make(chan struct{}, 1)
	c.scheduler.SetRefreshHook(func(error) {
		select {
		case redraw <- struct{}{}:
		default:
		}
	})

	draw := func() error {
		if interactive {
			screen.ClearScreen()
		}
		return term.Render(out, watchView(c, cfg.RefreshInterval))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.scheduler.Start(gctx, cfg.RefreshInterval)
		return nil
	})

	g.Go(func() error {
		var tick <-chan time.Time
		if interactive {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-redraw:
			case <-tick:
			}
			if err := draw(); err != nil {
				return fmt.Errorf("render terminal view: %w", err)
			}
		}
	})

	return g.Wait()
}

// watchView は現在の状態から端末表示の入力を組み立てる。
// 端末では検索や並び替えの操作が無いため、失敗時は常にエラーを表示する。
func watchView(c *components, interval time.Duration) render.TerminalView {
	view := c.store.View()
	kind := render.ChooseContent(view.HasSnapshot(), view.Failed(), false)

	var drops []model.Deal
	if kind == render.ContentDrops {
		drops = c.sorter.Sort(view.Snapshot.Drops, listing.DefaultSortKey)
	}

	return render.TerminalView{
		Snapshot:  view.Snapshot,
		Kind:      kind,
		Drops:     drops,
		FetchErr:  view.LastError,
		Countdown: c.countdown.String(),
		RetryIn:   render.FormatRetryIn(interval),
		Limit:     watchLimit,
	}
}
