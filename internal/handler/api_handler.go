package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/dropwatch/internal/listing"
	"github.com/hitoshi/dropwatch/internal/middleware"
	"github.com/hitoshi/dropwatch/internal/model"
)

// APIHandler は値下げ一覧と取得状態のJSON APIハンドラー。
type APIHandler struct {
	state     StateReader
	countdown CountdownReader
	projector Projector
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(st StateReader, countdown CountdownReader, projector Projector) *APIHandler {
	return &APIHandler{
		state:     st,
		countdown: countdown,
		projector: projector,
	}
}

// dropsResponse は一覧APIのレスポンス。
type dropsResponse struct {
	GeneratedAt model.Timestamp `json:"generated_at"`
	Total       int             `json:"total"`
	Count       int             `json:"count"`
	Sort        string          `json:"sort"`
	Query       string          `json:"query"`
	Drops       []model.Deal    `json:"drops"`
}

// statusResponse は取得状態APIのレスポンス。
type statusResponse struct {
	HasSnapshot      bool       `json:"has_snapshot"`
	LastSuccessAt    *time.Time `json:"last_success_at"`
	LastAttemptAt    *time.Time `json:"last_attempt_at"`
	LastError        *string    `json:"last_error"`
	LastErrorKind    *string    `json:"last_error_kind"`
	Countdown        string     `json:"countdown"`
	RemainingSeconds int        `json:"remaining_seconds"`
	CountdownRunning bool       `json:"countdown_running"`
}

// ListDrops は検索・並び替え済みの値下げ一覧を返す。
// GET /api/drops
func (h *APIHandler) ListDrops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("q")
	sortParam := q.Get("sort")

	key, err := listing.ParseSortKey(sortParam)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSortError(sortParam))
		return
	}

	view := h.state.View()
	if !view.HasSnapshot() {
		apiErr := model.NewNoSnapshotError()
		if view.Failed() {
			apiErr = model.NewFetchFailedError(view.LastError.Error())
		}
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, apiErr)
		return
	}

	snap := view.Snapshot
	drops := h.projector.Project(snap.Drops, listing.Query{Search: search, Sort: key})
	if drops == nil {
		drops = []model.Deal{}
	}

	writeJSON(w, http.StatusOK, dropsResponse{
		GeneratedAt: snap.GeneratedAt,
		Total:       snap.TotalDrops,
		Count:       len(drops),
		Sort:        string(key),
		Query:       search,
		Drops:       drops,
	})
}

// Status は直近の取得結果とカウントダウンを返す。
// GET /api/status
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	view := h.state.View()

	resp := statusResponse{
		HasSnapshot:      view.HasSnapshot(),
		Countdown:        h.countdown.String(),
		RemainingSeconds: h.countdown.Remaining(),
		CountdownRunning: h.countdown.Running(),
	}
	if !view.LastSuccessAt.IsZero() {
		t := view.LastSuccessAt
		resp.LastSuccessAt = &t
	}
	if !view.LastAttemptAt.IsZero() {
		t := view.LastAttemptAt
		resp.LastAttemptAt = &t
	}
	if view.Failed() {
		msg := view.LastError.Error()
		kind := model.FetchErrorKind(view.LastError)
		resp.LastError = &msg
		resp.LastErrorKind = &kind
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health はプロセスの生存確認に応答する。
// フィードの取得状態には依存しない。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
