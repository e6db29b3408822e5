package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Countdown は次回の自動リフレッシュまでの残り秒数を保持する。
// 1秒ごとにTickで減算し、0で停止する。取得成功のたびにResetで満了値に戻す。
type Countdown struct {
	mu        sync.Mutex
	total     int
	remaining int
	running   bool

	// resetCh はResetをRunに伝え、秒の刻みを取り直させる
	resetCh chan struct{}
}

// NewCountdown はリフレッシュ間隔からCountdownを生成する。
// 初回取得が成功するまでは停止状態。
func NewCountdown(interval time.Duration) *Countdown {
	total := int(interval / time.Second)
	return &Countdown{
		total:     total,
		remaining: total,
		resetCh:   make(chan struct{}, 1),
	}
}

// Reset は残り秒数を満了値に戻し、カウントを開始する。
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remaining = c.total
	c.running = true

	select {
	case c.resetCh <- struct{}{}:
	default:
	}
}

// Tick は残り秒数を1減らす。0に達したらそれ以上減らさず停止する。
func (c *Countdown) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.running = false
	}
}

// Remaining は残り秒数を返す。
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running はカウント中かを返す。
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// String は残り時間を m:ss 形式で返す。
func (c *Countdown) String() string {
	return FormatRemaining(c.Remaining())
}

// FormatRemaining は秒数を m:ss 形式に整形する。負の値は0として扱う。
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Run はコンテキストがキャンセルされるまでtick間隔でTickを呼び出す。
// Resetされるとティッカーを張り直し、リセット時点から1刻み後に最初の減算を行う。
func (c *Countdown) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.resetCh:
			ticker.Reset(tick)
		case <-ticker.C:
			// 同時に届いたResetを優先し、リセット直後の減算を避ける
			select {
			case <-c.resetCh:
				ticker.Reset(tick)
				continue
			default:
			}
			c.Tick()
		}
	}
}
