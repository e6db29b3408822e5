// Package refresh はフィードの定期リフレッシュを提供する。
// 起動直後の初回取得、一定間隔の自動リフレッシュ、次回までのカウントダウンを含む。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/dropwatch/internal/metrics"
	"github.com/hitoshi/dropwatch/internal/model"
)

// SnapshotFetcher はフィード取得の実行インターフェース。
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*model.Snapshot, error)
}

// SnapshotStore は取得結果の保存先インターフェース。
type SnapshotStore interface {
	Replace(snapshot *model.Snapshot, at time.Time)
	RecordFailure(err error, at time.Time)
}

// Scheduler はフィード取得を一定間隔で実行する。
// 取得は常にこのgoroutine上で直列に行われる。
// 失敗しても早期リトライは行わず、次のティックを待つ。
type Scheduler struct {
	fetcher   SnapshotFetcher
	store     SnapshotStore
	countdown *Countdown
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
	onRefresh func(error)
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// metricsCollectorはnilでもよい。
func NewScheduler(
	fetcher SnapshotFetcher,
	store SnapshotStore,
	countdown *Countdown,
	metricsCollector metrics.MetricsCollector,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		fetcher:   fetcher,
		store:     store,
		countdown: countdown,
		metrics:   metricsCollector,
		logger:    logger,
		now:       time.Now,
	}
}

// SetRefreshHook は各取得の完了後に呼ばれるフックを設定する。
// 成功時はnil、失敗時は取得エラーが渡される。
func (s *Scheduler) SetRefreshHook(hook func(error)) {
	s.onRefresh = hook
}

// Start はカウントダウンを動かしつつ、起動直後に1回取得し、その後interval間隔で取得する。
// 取得成功でティッカーを再設定することはない。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リフレッシュスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	go s.countdown.Run(ctx, time.Second)

	// 起動直後に1回実行
	_ = s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リフレッシュスケジューラを停止しました")
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce はフィードを1回取得し、結果を状態に反映する。
// 成功時はスナップショットを置き換えてカウントダウンをリセットする。
// 失敗時はエラーを記録し、以前のスナップショットは保持する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	attemptID := uuid.NewString()
	start := s.now()

	snapshot, err := s.fetcher.Fetch(ctx)
	finished := s.now()
	if s.metrics != nil {
		s.metrics.RecordFetchLatency(finished.Sub(start))
	}

	if err != nil {
		kind := model.FetchErrorKind(err)
		s.store.RecordFailure(err, finished)
		if s.metrics != nil {
			s.metrics.RecordFetchFailure(kind)
		}
		s.logger.Error("価格データの読み込みに失敗しました",
			slog.String("attempt_id", attemptID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		s.notify(err)
		return err
	}

	s.store.Replace(snapshot, finished)
	s.countdown.Reset()
	if s.metrics != nil {
		s.metrics.RecordFetchSuccess(len(snapshot.Drops))
		s.metrics.SetLastSuccess(finished)
	}

	s.logger.Info("価格データを更新しました",
		slog.String("attempt_id", attemptID),
		slog.Int("drops_count", len(snapshot.Drops)),
		slog.Int("total_drops", snapshot.TotalDrops),
		slog.Float64("duration_ms", float64(finished.Sub(start).Milliseconds())),
	)
	s.notify(nil)
	return nil
}

func (s *Scheduler) notify(err error) {
	if s.onRefresh != nil {
		s.onRefresh(err)
	}
}
