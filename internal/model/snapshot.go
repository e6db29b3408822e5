package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naiveISOLayouts はタイムゾーン無しのISO-8601形式。
// 生成側はローカル時刻をタイムゾーン無しで出力する。
var naiveISOLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp はフィードの生成時刻。
// RFC 3339 とタイムゾーン無しのISO-8601形式の両方を受け付ける。
type Timestamp struct {
	time.Time
}

// UnmarshalJSON は文字列の時刻表現をパースする。nullはゼロ値のままにする。
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveISOLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format: %q", s)
}

// MarshalJSON はRFC 3339形式で出力する。
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// SiteStat はサイトごとの集計値。
type SiteStat struct {
	Site         string  `json:"site" validate:"required"`
	Count        int     `json:"count" validate:"gte=0"`
	MaxDrop      float64 `json:"max_drop" validate:"gte=0"`
	TotalSavings float64 `json:"total_savings"`
}

// Snapshot は最後に取得に成功したフィード全体。
// 取得成功のたびに丸ごと置き換え、前回分とのマージは行わない。
type Snapshot struct {
	GeneratedAt   Timestamp  `json:"generated_at"`
	TotalDrops    int        `json:"total_drops" validate:"gte=0"`
	TopDropsShown int        `json:"top_drops_shown,omitempty" validate:"gte=0"`
	SiteStats     []SiteStat `json:"site_stats" validate:"required,dive"`
	Drops         []Deal     `json:"drops" validate:"required,dive"`
}

// TopDrop は先頭の値下げ率を返す。0件の場合は0。
// 生成側は値下げ率の降順で出力する。
func (s *Snapshot) TopDrop() float64 {
	if len(s.Drops) == 0 {
		return 0
	}
	return s.Drops[0].Percentage
}

// SitesTracked は集計対象のサイト数を返す。
func (s *Snapshot) SitesTracked() int {
	return len(s.SiteStats)
}
