package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/dropwatch/internal/listing"
	"github.com/hitoshi/dropwatch/internal/model"
	"github.com/hitoshi/dropwatch/internal/render"
	"github.com/hitoshi/dropwatch/internal/state"
)

// StateReader は現在のスナップショットと取得状態を読み取るインターフェース。
// ハンドラーは読み取りのみを行い、取得はスケジューラに任せる。
type StateReader interface {
	View() state.View
}

// CountdownReader は次回リフレッシュまでの残り時間を読み取るインターフェース。
type CountdownReader interface {
	Remaining() int
	Running() bool
	String() string
}

// PageRenderer はダッシュボードのHTML生成インターフェース。
type PageRenderer interface {
	RenderPage(w io.Writer, p render.Page) error
	RenderContent(kind render.ContentKind, drops []model.Deal, fetchErr error) (string, error)
}

// Projector は検索と並び替えを適用した表示用一覧を導出する。
type Projector interface {
	Project(drops []model.Deal, q listing.Query) []model.Deal
}

// DashboardHandler はダッシュボードページと一覧断片のHTTPハンドラー。
type DashboardHandler struct {
	state     StateReader
	countdown CountdownReader
	projector Projector
	renderer  PageRenderer
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(st StateReader, countdown CountdownReader, projector Projector, renderer PageRenderer) *DashboardHandler {
	return &DashboardHandler{
		state:     st,
		countdown: countdown,
		projector: projector,
		renderer:  renderer,
	}
}

// dashboardRequest はダッシュボードのクエリパラメータ。
type dashboardRequest struct {
	Query     string
	SortParam string
	Toggle    bool
	Dropdown  *render.Dropdown
}

// parseDashboardRequest はq, sort, menuを解釈する。
// sortが未知の値の場合はINVALID_SORTのAPIErrorを返す。
func parseDashboardRequest(r *http.Request) (*dashboardRequest, error) {
	q := r.URL.Query()
	req := &dashboardRequest{
		Query:     q.Get("q"),
		SortParam: q.Get("sort"),
		Toggle:    q.Get("menu") == "toggle",
		Dropdown:  render.NewDropdown(),
	}

	if err := req.Dropdown.Select(req.SortParam); err != nil {
		return nil, model.NewInvalidSortError(req.SortParam)
	}
	if req.Toggle {
		req.Dropdown.Toggle()
	} else {
		req.Dropdown.Close()
	}
	return req, nil
}

// userInteracted は検索語か並び順が明示されたかを返す。
func (d *dashboardRequest) userInteracted() bool {
	return d.Query != "" || d.SortParam != ""
}

func (d *dashboardRequest) listingQuery() listing.Query {
	return listing.Query{Search: d.Query, Sort: d.Dropdown.Selected()}
}

// content は表示内容の種別と、表示する一覧を決定する。
func (h *DashboardHandler) content(view state.View, req *dashboardRequest) (render.ContentKind, []model.Deal) {
	kind := render.ChooseContent(view.HasSnapshot(), view.Failed(), req.userInteracted())
	if kind != render.ContentDrops {
		return kind, nil
	}
	return kind, h.projector.Project(view.Snapshot.Drops, req.listingQuery())
}

// Page はダッシュボードページ全体を返す。
// GET /
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	req, err := parseDashboardRequest(r)
	if err != nil {
		writeHTMLError(w, http.StatusBadRequest, err)
		return
	}

	view := h.state.View()
	kind, drops := h.content(view, req)

	var buf bytes.Buffer
	err = h.renderer.RenderPage(&buf, render.Page{
		Snapshot:  view.Snapshot,
		Kind:      kind,
		Drops:     drops,
		FetchErr:  view.LastError,
		Query:     req.Query,
		SortParam: req.SortParam,
		Dropdown:  req.Dropdown,
		Countdown: h.countdown.String(),
	})
	if err != nil {
		slog.Error("failed to render dashboard", slog.String("error", err.Error()))
		writeHTMLError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	writeHTML(w, buf.Bytes())
}

// Drops は一覧領域の断片のみを返す。
// GET /drops
func (h *DashboardHandler) Drops(w http.ResponseWriter, r *http.Request) {
	req, err := parseDashboardRequest(r)
	if err != nil {
		writeHTMLError(w, http.StatusBadRequest, err)
		return
	}

	view := h.state.View()
	kind, drops := h.content(view, req)

	fragment, err := h.renderer.RenderContent(kind, drops, view.LastError)
	if err != nil {
		slog.Error("failed to render drops", slog.String("error", err.Error()))
		writeHTMLError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	writeHTML(w, []byte(fragment))
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// writeHTMLError はHTML向けのエラーをプレーンテキストで返す。
func writeHTMLError(w http.ResponseWriter, statusCode int, err error) {
	msg := err.Error()
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	http.Error(w, msg, statusCode)
}
