// Package feed は値下げフィード（price_drops.json）の取得とパースを提供する。
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/dropwatch/internal/model"
)

// URLGuard はフェッチ先URLの検証とHTTPクライアント生成のインターフェース。
type URLGuard interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// validate はスナップショットのスキーマ検証に使う。validator.Validateは並行利用に対して安全。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "40." のような末尾ピリオド付きの価格も出力されるため、numericではなくdecimalで解釈できるかで判定する
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

// Client は設定済みURLからフィードを取得するクライアント。
// キャッシュ回避のクエリを付けたGETを1回発行し、結果をSnapshotに変換する。
// リトライは行わない（次回の定期リフレッシュに任せる）。
type Client struct {
	httpClient  *http.Client
	guard       URLGuard
	logger      *slog.Logger
	dataURL     string
	maxBodySize int64
	now         func() time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(
	guard URLGuard,
	logger *slog.Logger,
	dataURL string,
	timeout time.Duration,
	maxBodySize int64,
) *Client {
	return &Client{
		httpClient:  guard.NewSafeClient(timeout, maxBodySize),
		guard:       guard,
		logger:      logger,
		dataURL:     dataURL,
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// DataURL は取得先URL（キャッシュ回避クエリ無し）を返す。
func (c *Client) DataURL() string {
	return c.dataURL
}

// Fetch はフィードを取得してSnapshotを返す。
// 失敗時は model.NetworkError / model.HTTPError / model.ParseError のいずれかを返す。
func (c *Client) Fetch(ctx context.Context) (*model.Snapshot, error) {
	start := c.now()

	if err := c.guard.ValidateURL(c.dataURL); err != nil {
		c.logger.Error("データURLの検証に失敗しました",
			slog.String("data_url", c.dataURL),
			slog.String("error", err.Error()),
		)
		return nil, &model.NetworkError{Err: fmt.Errorf("URL検証に失敗: %w", err)}
	}

	reqURL, err := CacheBustedURL(c.dataURL, start)
	if err != nil {
		return nil, &model.NetworkError{Err: fmt.Errorf("リクエストURLの構築に失敗: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &model.NetworkError{Err: fmt.Errorf("リクエスト作成に失敗: %w", err)}
	}

	req.Header.Set("User-Agent", "Dropwatch/1.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("HTTPリクエストに失敗しました",
			slog.String("data_url", c.dataURL),
			slog.String("error", err.Error()),
		)
		return nil, &model.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("フィードがエラーステータスを返しました",
			slog.String("data_url", c.dataURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &model.HTTPError{StatusCode: resp.StatusCode}
	}

	// 上限+1バイトまで読み、超過を検出する
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("data_url", c.dataURL),
			slog.String("error", err.Error()),
		)
		return nil, &model.NetworkError{Err: fmt.Errorf("レスポンス読み取り失敗: %w", err)}
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, &model.ParseError{Err: fmt.Errorf("response body exceeds %d bytes", c.maxBodySize)}
	}

	snapshot, err := ParseSnapshot(body)
	if err != nil {
		c.logger.Error("フィードのパースに失敗しました",
			slog.String("data_url", c.dataURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("フィードの取得が完了しました",
		slog.String("data_url", c.dataURL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("drops_count", len(snapshot.Drops)),
		slog.Int("total_drops", snapshot.TotalDrops),
		slog.Float64("duration_ms", float64(c.now().Sub(start).Milliseconds())),
	)

	return snapshot, nil
}

// ParseSnapshot はJSONボディをSnapshotに変換し、スキーマを検証する。
// 不正な場合は model.ParseError を返す。部分的な採用は行わない。
func ParseSnapshot(body []byte) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, &model.ParseError{Err: err}
	}

	if snapshot.GeneratedAt.IsZero() {
		return nil, &model.ParseError{Err: fmt.Errorf("generated_at is missing")}
	}

	if err := validate.Struct(&snapshot); err != nil {
		return nil, &model.ParseError{Err: fmt.Errorf("validation failed: %w", err)}
	}

	return &snapshot, nil
}

// CacheBustedURL はURLのクエリに t=<エポックミリ秒> を設定する。
// 既存のクエリパラメータは保持する。
func CacheBustedURL(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
