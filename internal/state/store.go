// Package state はダッシュボードのアプリケーション状態を保持する。
// HTTPハンドラーとリフレッシュスケジューラが別goroutineから参照するため、
// 読み書きはすべてStoreを経由する。
package state

import (
	"sync"
	"time"

	"github.com/hitoshi/dropwatch/internal/model"
)

// Store は最後に取得に成功したスナップショットと直近の取得結果を保持する。
type Store struct {
	mu            sync.RWMutex
	snapshot      *model.Snapshot
	lastErr       error
	lastSuccessAt time.Time
	lastAttemptAt time.Time
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Replace はスナップショットを丸ごと置き換え、直近のエラーをクリアする。
func (s *Store) Replace(snapshot *model.Snapshot, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snapshot
	s.lastErr = nil
	s.lastSuccessAt = at
	s.lastAttemptAt = at
}

// RecordFailure は取得失敗を記録する。スナップショットは変更しない。
func (s *Store) RecordFailure(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	s.lastAttemptAt = at
}

// View は読み取り時点の状態のコピー。
type View struct {
	Snapshot      *model.Snapshot
	LastError     error
	LastSuccessAt time.Time
	LastAttemptAt time.Time
}

// HasSnapshot は一度でも取得に成功しているかを返す。
func (v View) HasSnapshot() bool {
	return v.Snapshot != nil
}

// Failed は直近の取得が失敗しているかを返す。
func (v View) Failed() bool {
	return v.LastError != nil
}

// View は現在の状態を返す。
// Snapshotは共有されるため、呼び出し側は変更してはならない。
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		Snapshot:      s.snapshot,
		LastError:     s.lastErr,
		LastSuccessAt: s.lastSuccessAt,
		LastAttemptAt: s.lastAttemptAt,
	}
}
